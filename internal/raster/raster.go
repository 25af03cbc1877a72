// Package raster defines the decoder and enumerator capabilities that the
// band statistics engine consumes.
//
// A Decoder opens a file into a Dataset. Every worker opens its own Dataset
// for the file it is processing; handles are never shared between workers.
// Bands are decoded into float32 samples in row-major order.
package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen indicates a file is missing, corrupt or unreadable
	ErrOpen = errors.New("open raster")

	// ErrRead indicates a band could not be decoded
	ErrRead = errors.New("read band")

	// ErrBandIndex indicates a band index outside [0, BandCount)
	ErrBandIndex = errors.New("band index out of range")
)

// Band is one decoded band of a raster file
type Band struct {
	// Index is the zero-based band index
	Index int

	// Width and Height are the grid dimensions
	Width  int
	Height int

	// Samples holds Width*Height values in row-major order
	Samples []float32
}

// Len returns the number of samples in the band
func (b *Band) Len() int {
	return b.Width * b.Height
}

// Dataset is an open raster file
type Dataset interface {
	// BandCount returns the number of bands in the file
	BandCount() int

	// ReadBand decodes band index (zero-based)
	ReadBand(index int) (*Band, error)

	// Close releases the handle
	Close() error
}

// Decoder opens raster files
type Decoder interface {
	Open(path string) (Dataset, error)
}

// OpenError wraps a failure to open path
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrOpen, e.Path, e.Err)
}

// Unwrap returns both ErrOpen and the cause for errors.Is/As compatibility
func (e *OpenError) Unwrap() []error {
	return []error{ErrOpen, e.Err}
}

// ReadError wraps a failure to decode one band of path
type ReadError struct {
	Path string
	Band int
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%v %d of %q: %v", ErrRead, e.Band, e.Path, e.Err)
}

// Unwrap returns both ErrRead and the cause for errors.Is/As compatibility
func (e *ReadError) Unwrap() []error {
	return []error{ErrRead, e.Err}
}
