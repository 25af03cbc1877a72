package raster

import (
	"errors"
	"sync"

	"github.com/spf13/afero"
)

var errDatasetClosed = errors.New("dataset closed")

// TIFFDecoder reads the first image of classic and BigTIFF files.
//
// The band count is SamplesPerPixel, extra samples included. Samples may
// be 1 to 64-bit integers or 32/64-bit IEEE floats, stored chunky or
// planar, in strips or tiles, uncompressed or with LZW, Deflate or
// PackBits, with or without a predictor. Samples keep their stored values.
type TIFFDecoder struct {
	fs afero.Fs
}

// NewTIFFDecoder creates a decoder reading from fs. A nil fs reads the
// operating system filesystem.
func NewTIFFDecoder(fs afero.Fs) *TIFFDecoder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &TIFFDecoder{fs: fs}
}

// Open reads the file and validates its layout. Pixels are decoded on
// ReadBand.
func (d *TIFFDecoder) Open(path string) (Dataset, error) {
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	layout, err := parseLayout(data)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return &tiffDataset{path: path, layout: layout, data: data}, nil
}

type tiffDataset struct {
	path   string
	layout *tiffLayout

	mu   sync.Mutex
	data []byte

	// Chunky files interleave every band, so their chunks are decoded
	// once and shared by all ReadBand calls
	once   sync.Once
	chunks [][]byte
	decErr error
}

func (t *tiffDataset) BandCount() int {
	return t.layout.samples
}

// ReadBand is safe for concurrent use
func (t *tiffDataset) ReadBand(index int) (*Band, error) {
	if index < 0 || index >= t.layout.samples {
		return nil, &ReadError{Path: t.path, Band: index, Err: ErrBandIndex}
	}

	chunks, err := t.chunksFor(index)
	if err != nil {
		return nil, &ReadError{Path: t.path, Band: index, Err: err}
	}
	return t.layout.extract(chunks, index), nil
}

func (t *tiffDataset) chunksFor(band int) ([][]byte, error) {
	t.mu.Lock()
	data := t.data
	t.mu.Unlock()
	if data == nil {
		return nil, errDatasetClosed
	}

	if t.layout.separate() {
		return t.layout.decodePlane(data, band)
	}
	t.once.Do(func() {
		t.chunks, t.decErr = t.layout.decodePlane(data, 0)
	})
	return t.chunks, t.decErr
}

func (t *tiffDataset) Close() error {
	t.mu.Lock()
	t.data = nil
	t.mu.Unlock()
	return nil
}
