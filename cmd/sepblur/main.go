// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"

	"github.com/mlnoga/sepblur/filter1d"
	"github.com/mlnoga/sepblur/internal/log"
	"github.com/mlnoga/sepblur/internal/rest"
	"github.com/mlnoga/sepblur/kernels"
	"github.com/mlnoga/sepblur/pixel"
)

const version = "0.1.0"

var totalMiBs = memory.TotalMemory() / 1024 / 1024

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out.raw", "save output to `file`")
var logName = flag.String("log", "", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var width = flag.Int("width", 1920, "image width in pixels")
var height = flag.Int("height", 1080, "image height in pixels")
var channels = flag.Int("channels", 3, "interleaved channels per pixel, one of 1, 3 or 4")
var sampleType = flag.String("type", "u8", "sample type, one of u8, u16 or f32")

var rowKernel = flag.String("row", "", "row kernel as comma separated coefficients, e.g. `0.25,0.5,0.25`")
var colKernel = flag.String("col", "", "column kernel as comma separated coefficients, defaults to the row kernel")
var sigma = flag.Float64("sigma", 0, "gaussian blur with given sigma, if no kernels are given")
var box = flag.Int("box", 0, "box blur with given radius, if no kernels or sigma are given")

var edge = flag.String("edge", "reflect", "edge mode, one of clamp, wrap, reflect, mirror or constant")
var vedge = flag.String("vedge", "", "vertical edge mode if different from -edge")
var border = flag.String("border", "0", "constant border value, or comma separated value per channel")

var approx = flag.Int("approx", -1, "fixed point approximation with given fractional bits, 0=default for the sample type, -1=exact")
var threads = flag.Int("threads", 0, "worker threads, 0=adaptive, 1=single threaded")
var reserve = flag.Int("reserve", 0, "with adaptive threads, leave this many CPUs free")
var backend = flag.String("backend", "auto", "convolution backend, one of auto, scalar, sse4.1, avx2, avx512 or neon")

var iter = flag.Int("iter", 10, "benchmark iterations per configuration")
var addr = flag.String("addr", ":8080", "listen address for serve")
var chroot = flag.String("chroot", "", "for serve, chroot into this `directory` after binding the port (requires root)")
var setuid = flag.Int("setuid", -1, "for serve, change to this user id after binding the port, -1=keep")

func main() {
	logWriter := log.Writer()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Sepblur Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (filter|bench|serve|cpu|legal|version) (in.raw)

Commands:
  filter  Filter a raw image of packed little-endian samples
  bench   Time filtering a random image across backends and thread counts
  serve   Serve the REST API
  cpu     Show CPU capabilities
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *logName == "%auto" {
		*logName = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
	}
	if *logName != "" {
		if err := log.AlsoToFile(*logName); err != nil {
			log.Fatalf("Unable to open logfile '%s': %s\n", *logName, err)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("Could not create CPU profile: %s\n", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Could not start CPU profile: %s\n", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "filter":
		if len(args) != 2 {
			log.Fatalf("filter takes exactly one input file\n")
		}
		err = cmdFilter(args[1])

	case "bench":
		err = cmdBench()

	case "serve":
		fmt.Fprintf(logWriter, "Serving on %s\n", *addr)
		err = rest.Serve(*addr, *chroot, *setuid, logWriter)

	case "cpu":
		cmdCPU()

	case "legal":
		log.Print(legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatalf("Could not create memory profile: %s\n", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			log.Fatalf("Could not write allocation profile: %s\n", err)
		}
	}

	if err != nil {
		log.Fatalf("Error: %s\n", err.Error())
	}
	log.Close()
}

// options builds filter options from the flags
func options() (filter1d.Options, error) {
	opts := filter1d.DefaultOptions()
	opts.Log = log.Writer()

	h, err := pixel.ParseEdgeMode(*edge)
	if err != nil {
		return opts, err
	}
	v := h
	if *vedge != "" {
		if v, err = pixel.ParseEdgeMode(*vedge); err != nil {
			return opts, err
		}
	}
	opts.Edge = pixel.EdgeMode2D{Horizontal: h, Vertical: v}

	values, err := parseFloats(*border)
	if err != nil {
		return opts, fmt.Errorf("border: %w", err)
	}
	switch len(values) {
	case 1:
		opts.Border = pixel.Dup(float64(values[0]))
	case 3, 4:
		for i, f := range values {
			opts.Border[i] = float64(f)
		}
	default:
		return opts, fmt.Errorf("border needs 1, 3 or 4 values, got %d", len(values))
	}

	if *approx >= 0 {
		opts.Precision = filter1d.Approximate(uint(*approx))
	}
	switch {
	case *threads == 1:
		opts.Threading = filter1d.SingleThread()
	case *threads > 1:
		opts.Threading = filter1d.FixedThreads(*threads)
	case *reserve > 0:
		opts.Threading = filter1d.AdaptiveReserveThreads(*reserve)
	}
	if opts.Backend, err = filter1d.ParseBackend(*backend); err != nil {
		return opts, err
	}
	return opts, nil
}

// kernelsFromFlags returns the row and column kernels given by -row/-col, -sigma or -box
func kernelsFromFlags() (row, col []float32, err error) {
	switch {
	case *rowKernel != "":
		if row, err = parseFloats(*rowKernel); err != nil {
			return nil, nil, fmt.Errorf("row kernel: %w", err)
		}
		col = row
		if *colKernel != "" {
			if col, err = parseFloats(*colKernel); err != nil {
				return nil, nil, fmt.Errorf("column kernel: %w", err)
			}
		}
	case *sigma > 0:
		row = kernels.Float32(kernels.Gaussian(*sigma))
		col = row
	default:
		row = kernels.Float32(kernels.Box(*box))
		col = row
	}
	return row, col, nil
}

func parseFloats(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	res := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		res[i] = float32(f)
	}
	return res, nil
}

// Filter a raw image file and write the result to -out
func cmdFilter(fileName string) error {
	opts, err := options()
	if err != nil {
		return err
	}
	row, col, err := kernelsFromFlags()
	if err != nil {
		return err
	}
	t, err := pixel.ParseSampleType(*sampleType)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}
	log.Printf("Filtering %s (%dx%dx%d %s) with kernels %v / %v\n", fileName, *width, *height, *channels, t, row, col)

	switch t {
	case pixel.U8:
		data, err = filterRaw[uint8](data, row, col, opts)
	case pixel.U16:
		data, err = filterRaw[uint16](data, row, col, opts)
	default:
		data, err = filterRaw[float32](data, row, col, opts)
	}
	if err != nil {
		return err
	}
	log.Printf("Writing %s ...\n", *out)
	return os.WriteFile(*out, data, 0666)
}

func filterRaw[T pixel.Sample](data []byte, row, col []float32, opts filter1d.Options) ([]byte, error) {
	img, err := pixel.DecodeRaw[T](data, *width, *height, *channels)
	if err != nil {
		return nil, err
	}
	if err := filter1d.Filter1D(img, img, row, col, opts); err != nil {
		return nil, err
	}
	return pixel.EncodeRaw(img), nil
}

// Show CPU capabilities and what the dispatcher will use
func cmdCPU() {
	caps := filter1d.Probe()
	log.Printf("CPU %s, %d physical cores, %d logical cores, %d MiB memory\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, totalMiBs)
	log.Printf("GOARCH %s, GOMAXPROCS %d\n", runtime.GOARCH, runtime.GOMAXPROCS(0))
	log.Printf("Backends: %s\n", caps)
}
