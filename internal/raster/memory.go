package raster

import (
	"fmt"
	"os"
	"sync"
)

// MemoryDecoder serves datasets from memory. It is safe for concurrent use.
type MemoryDecoder struct {
	mu    sync.RWMutex
	files map[string][]Band
	opens map[string]int

	// OpenHook, when set, runs on every Open with the 1-based number of
	// times path has been opened so far. A non-nil error fails the open.
	OpenHook func(path string, n int) error

	// ReadHook, when set, runs before every ReadBand. A non-nil error
	// fails the read.
	ReadHook func(path string, band int) error
}

// NewMemoryDecoder creates an empty in-memory decoder
func NewMemoryDecoder() *MemoryDecoder {
	return &MemoryDecoder{files: make(map[string][]Band), opens: make(map[string]int)}
}

// Add registers a file made of bands. Bands are re-indexed by position.
func (d *MemoryDecoder) Add(path string, bands ...Band) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := make([]Band, len(bands))
	for i, b := range bands {
		b.Index = i
		b.Samples = append([]float32(nil), b.Samples...)
		stored[i] = b
	}
	d.files[path] = stored
}

// Opens returns how many times path has been opened
func (d *MemoryDecoder) Opens(path string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.opens[path]
}

// Remove forgets path
func (d *MemoryDecoder) Remove(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, path)
}

// Open implements Decoder
func (d *MemoryDecoder) Open(path string) (Dataset, error) {
	d.mu.Lock()
	bands, ok := d.files[path]
	d.opens[path]++
	n := d.opens[path]
	d.mu.Unlock()

	if d.OpenHook != nil {
		if err := d.OpenHook(path, n); err != nil {
			return nil, &OpenError{Path: path, Err: err}
		}
	}
	if !ok {
		return nil, &OpenError{Path: path, Err: os.ErrNotExist}
	}
	return &memoryDataset{path: path, bands: bands, hook: d.ReadHook}, nil
}

type memoryDataset struct {
	path   string
	bands  []Band
	hook   func(path string, band int) error
	closed bool
}

func (m *memoryDataset) BandCount() int {
	return len(m.bands)
}

func (m *memoryDataset) ReadBand(index int) (*Band, error) {
	if m.closed {
		return nil, &ReadError{Path: m.path, Band: index, Err: os.ErrClosed}
	}
	if index < 0 || index >= len(m.bands) {
		return nil, &ReadError{Path: m.path, Band: index, Err: ErrBandIndex}
	}
	if m.hook != nil {
		if err := m.hook(m.path, index); err != nil {
			return nil, &ReadError{Path: m.path, Band: index, Err: err}
		}
	}

	src := m.bands[index]
	if len(src.Samples) != src.Width*src.Height {
		return nil, &ReadError{
			Path: m.path,
			Band: index,
			Err:  fmt.Errorf("%d samples for a %dx%d grid", len(src.Samples), src.Width, src.Height),
		}
	}

	// Each reader owns its copy
	out := src
	out.Samples = append([]float32(nil), src.Samples...)
	return &out, nil
}

func (m *memoryDataset) Close() error {
	m.closed = true
	return nil
}
