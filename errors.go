package dseed

import (
	"errors"
	"fmt"
)

// Code is a process-wide error code. Any non-negative value means success;
// failures are negative and partitioned by category.
//
// Code implements error so it can be wrapped with context and matched with
// errors.Is:
//
//	return fmt.Errorf("dib: bad magic: %w", dseed.ErrNotSupportFileFormat)
type Code int32

// Category groups failure codes.
type Category int

const (
	CategoryNone Category = iota
	CategoryArgument
	CategoryIO
	CategoryFormat
	CategoryDevice
	CategoryNetwork
	CategoryGeneric
)

// Success codes.
const (
	Good      Code = 0
	Processed Code = 1
)

// Argument errors.
const (
	ErrInvalidArgs Code = -100 - iota
	ErrOutOfRange
	ErrInvalidOp
	ErrOutOfMemory
)

// I/O errors.
const (
	ErrIO Code = -200 - iota
	ErrEndOfFile
	ErrNotReadable
	ErrNotWritable
	ErrNotSeekable
)

// Format support errors.
const (
	ErrNotSupport Code = -300 - iota
	ErrNotSupportFileFormat
	ErrCorruptedData
)

// Device errors.
const (
	ErrDeviceLost Code = -400 - iota
)

// Network errors.
const (
	ErrNetwork Code = -500 - iota
)

// Generic errors.
const (
	ErrFail Code = -900 - iota
	ErrNotImplemented
)

var codeNames = map[Code]string{
	Good:                    "good",
	Processed:               "processed",
	ErrInvalidArgs:          "invalid arguments",
	ErrOutOfRange:           "out of range",
	ErrInvalidOp:            "invalid operation",
	ErrOutOfMemory:          "out of memory",
	ErrIO:                   "i/o error",
	ErrEndOfFile:            "end of file",
	ErrNotReadable:          "stream not readable",
	ErrNotWritable:          "stream not writable",
	ErrNotSeekable:          "stream not seekable",
	ErrNotSupport:           "not supported",
	ErrNotSupportFileFormat: "not supported file format",
	ErrCorruptedData:        "corrupted data",
	ErrDeviceLost:           "device lost",
	ErrNetwork:              "network error",
	ErrFail:                 "failed",
	ErrNotImplemented:       "not implemented",
}

// Error returns a human-readable description of the code.
func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return "dseed: " + name
	}
	return fmt.Sprintf("dseed: code %d", int32(c))
}

// Succeeded reports whether c denotes success.
func (c Code) Succeeded() bool { return c >= 0 }

// Category returns the category of a failure code.
// Success codes report CategoryNone.
func (c Code) Category() Category {
	if c >= 0 {
		return CategoryNone
	}
	switch n := -int32(c); {
	case n < 200:
		return CategoryArgument
	case n < 300:
		return CategoryIO
	case n < 400:
		return CategoryFormat
	case n < 500:
		return CategoryDevice
	case n < 600:
		return CategoryNetwork
	default:
		return CategoryGeneric
	}
}

// Succeeded reports whether err represents success: nil or a non-negative Code.
func Succeeded(err error) bool {
	if err == nil {
		return true
	}
	var c Code
	if errors.As(err, &c) {
		return c.Succeeded()
	}
	return false
}

// CodeOf extracts the Code carried by err. Errors that carry no code map to
// ErrFail; nil maps to Good.
func CodeOf(err error) Code {
	if err == nil {
		return Good
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return ErrFail
}
