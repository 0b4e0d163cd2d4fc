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

// Package blurerr defines the typed errors returned by the convolution engine.
// Every failure carries a Kind, which callers can test with errors.Is against
// the exported sentinels, and a Reason that narrows down validation failures.
package blurerr

import (
	"errors"
	"fmt"
)

// Kind is the error class.
type Kind int

const (
	// Validation indicates that the caller supplied invalid parameters:
	// kernels, image descriptors or options.
	Validation Kind = iota + 1
	// Allocation indicates that a working buffer could not be allocated.
	Allocation
	// Unsupported indicates that no implementation exists for the requested
	// combination of sample type, channel count and precision.
	Unsupported
)

var kinds = map[Kind]string{
	Validation:  "validation error",
	Allocation:  "allocation error",
	Unsupported: "unsupported configuration",
}

func (k Kind) String() string {
	if s, ok := kinds[k]; ok {
		return s
	}
	return "unknown error"
}

// Reason refines a Kind.
type Reason int

const (
	Unspecified Reason = iota
	EmptyKernel
	OddKernel
	BadWeight
	SizeMismatch
	ZeroSize
	Channels
	Stride
	BufferTooSmall
	Radius
	Precision
	Overflow
	OutOfMemory
)

var reasons = map[Reason]string{
	Unspecified:    "",
	EmptyKernel:    "empty kernel",
	OddKernel:      "kernel size must be odd",
	BadWeight:      "kernel weight is not finite",
	SizeMismatch:   "source and destination sizes differ",
	ZeroSize:       "image size must not be zero",
	Channels:       "unsupported channel count",
	Stride:         "row stride too small",
	BufferTooSmall: "buffer too small for stride and height",
	Radius:         "kernel radius too large",
	Precision:      "invalid precision",
	Overflow:       "size or accumulator overflow",
	OutOfMemory:    "out of memory",
}

func (r Reason) String() string { return reasons[r] }

// Error is the error type returned by all packages of this module.
type Error struct {
	Kind   Kind
	Reason Reason
	Op     string // operation that failed, e.g. "arena.New"
	Msg    string // details
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Reason != Unspecified {
		s += ": " + e.Reason.String()
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	return s
}

// Is matches sentinel errors: a sentinel without a Reason matches every error of
// its Kind, a sentinel with a Reason matches only that Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == Unspecified || t.Reason == e.Reason
}

// Sentinels for errors.Is
var (
	ErrValidation   = &Error{Kind: Validation}
	ErrAllocation   = &Error{Kind: Allocation}
	ErrUnsupported  = &Error{Kind: Unsupported}
	ErrEmptyKernel  = &Error{Kind: Validation, Reason: EmptyKernel}
	ErrOddKernel    = &Error{Kind: Validation, Reason: OddKernel}
	ErrSizeMismatch = &Error{Kind: Validation, Reason: SizeMismatch}
)

// E constructs an error of the given kind and reason. The message is formatted
// with fmt.Sprintf when args are present.
func E(op string, kind Kind, reason Reason, format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Reason: reason, Op: op, Msg: msg}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf returns the Reason of err, or Unspecified if err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return Unspecified
}
