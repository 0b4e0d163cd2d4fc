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

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestAlsoToFile(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	fileName := filepath.Join(t.TempDir(), "sepblur.log")
	if err := AlsoToFile(fileName); err != nil {
		t.Fatal(err)
	}
	Printf("%d threads\n", 4)
	Println("done")
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	want := "4 threads\ndone\n"
	if buf.String() != want {
		t.Errorf("stdout %q; want %q", buf.String(), want)
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("file %q; want %q", data, want)
	}

	if err := AlsoToFile(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Errorf("opening a file in a missing directory succeeded")
	}
}
