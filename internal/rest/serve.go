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

// Package rest exposes the filters over HTTP
package rest

import (
	"errors"
	"io"
	"net"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/pbnjay/memory"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/filter1d"
	"github.com/mlnoga/sepblur/pixel"
	"github.com/mlnoga/sepblur/web"
)

// Serve listens on the given address, e.g. ":8080", confines the process with
// Sandbox once the port is bound, and serves until the server fails.
// Filter calls log to logWriter, which may be nil.
func Serve(addr, chroot string, uid int, logWriter io.Writer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := Sandbox(chroot, uid, logWriter); err != nil {
		ln.Close()
		return err
	}
	return NewRouter(logWriter).RunListener(ln)
}

// NewRouter sets up the API routes
func NewRouter(logWriter io.Writer) *gin.Engine {
	r := gin.Default()
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	})
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/cpu", getCPU)
			v1.POST("/filter1d", limitBody(maxBodyBytes()), func(c *gin.Context) { postFilter1D(c, logWriter) })
		}
	}
	return r
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getCPU(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"capabilities": filter1d.Probe(),
		"numCPU":       runtime.NumCPU(),
		"maxThreads":   runtime.GOMAXPROCS(0),
		"memoryMB":     memory.TotalMemory() / 1024 / 1024,
	})
}

// maxBodyBytes bounds request bodies to a quarter of physical memory, leaving
// room for the decoded image and the working buffers. 1 GiB if unknown.
func maxBodyBytes() int64 {
	if total := memory.TotalMemory(); total > 0 {
		return int64(total / 4)
	}
	return 1 << 30
}

// limitBody makes reads past n bytes of the request body fail
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// Raw images travel as base64 encoded, packed, little-endian interleaved samples
type filterRequest struct {
	Width        int              `json:"width" binding:"required"`
	Height       int              `json:"height" binding:"required"`
	Channels     int              `json:"channels" binding:"required"`
	SampleType   string           `json:"sampleType"`
	Data         []byte           `json:"data"`
	RowKernel    []float32        `json:"rowKernel"`
	ColumnKernel []float32        `json:"columnKernel"` // defaults to RowKernel
	Options      filter1d.Options `json:"options"`
}

type filterResponse struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Channels   int    `json:"channels"`
	SampleType string `json:"sampleType"`
	Data       []byte `json:"data"`
}

func postFilter1D(c *gin.Context, logWriter io.Writer) {
	args := filterRequest{SampleType: pixel.U8.String(), Options: filter1d.DefaultOptions()}
	if err := c.ShouldBindJSON(&args); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if args.ColumnKernel == nil {
		args.ColumnKernel = args.RowKernel
	}
	args.Options.Log = logWriter

	t, err := pixel.ParseSampleType(args.SampleType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var data []byte
	switch t {
	case pixel.U8:
		data, err = filterRaw[uint8](&args)
	case pixel.U16:
		data, err = filterRaw[uint16](&args)
	default:
		data, err = filterRaw[float32](&args)
	}
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, filterResponse{
		Width:      args.Width,
		Height:     args.Height,
		Channels:   args.Channels,
		SampleType: t.String(),
		Data:       data,
	})
}

func filterRaw[T pixel.Sample](args *filterRequest) ([]byte, error) {
	img, err := pixel.DecodeRaw[T](args.Data, args.Width, args.Height, args.Channels)
	if err != nil {
		return nil, err
	}
	if err := filter1d.Filter1D(img, img, args.RowKernel, args.ColumnKernel, args.Options); err != nil {
		return nil, err
	}
	return pixel.EncodeRaw(img), nil
}

// statusOf maps error kinds to HTTP status codes
func statusOf(err error) int {
	switch blurerr.KindOf(err) {
	case blurerr.Validation:
		return http.StatusBadRequest
	case blurerr.Unsupported:
		return http.StatusUnprocessableEntity
	case blurerr.Allocation:
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}
