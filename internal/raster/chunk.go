package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/tiff/lzw"
)

// decodePlane decompresses every chunk of plane and undoes the predictor.
// Chunk k of the result covers grid cell (k % across, k / across).
func (l *tiffLayout) decodePlane(data []byte, plane int) ([][]byte, error) {
	perPlane := l.across * l.down
	out := make([][]byte, perPlane)
	for k := range out {
		i := plane*perPlane + k
		off, n := l.offsets[i], l.counts[i]
		if off > uint64(len(data)) || n > uint64(len(data))-off {
			return nil, fmt.Errorf("tiff: chunk %d outside file", i)
		}

		want := l.chunkBytes(k)
		chunk, err := decompress(data[off:off+n], l.compression, want)
		if err != nil {
			return nil, fmt.Errorf("tiff: chunk %d: %w", i, err)
		}
		if len(chunk) < want {
			return nil, fmt.Errorf("tiff: chunk %d holds %d bytes, want %d", i, len(chunk), want)
		}
		chunk = chunk[:want]

		if l.predictor != predictorNone {
			if l.compression == compressionNone {
				chunk = append([]byte(nil), chunk...)
			}
			l.undoPredictor(chunk)
		}
		out[k] = chunk
	}
	return out, nil
}

func decompress(raw []byte, compression, want int) ([]byte, error) {
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		return readFull(r, want)
	case compressionDeflate, compressionDeflateOld:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readFull(r, want)
	case compressionPackBits:
		return unpackBits(raw, want)
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, compression)
	}
}

// readFull reads exactly want bytes; streams may stop without an end code
func readFull(r io.Reader, want int) ([]byte, error) {
	buf := make([]byte, want)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func unpackBits(src []byte, want int) ([]byte, error) {
	dst := make([]byte, 0, want)
	for len(src) > 0 && len(dst) < want {
		n := int(int8(src[0]))
		src = src[1:]
		switch {
		case n >= 0:
			if len(src) < n+1 {
				return nil, errors.New("packbits: literal run past end of data")
			}
			dst = append(dst, src[:n+1]...)
			src = src[n+1:]
		case n != -128:
			if len(src) == 0 {
				return nil, errors.New("packbits: repeat run past end of data")
			}
			for i := 0; i < 1-n; i++ {
				dst = append(dst, src[0])
			}
			src = src[1:]
		}
	}
	return dst, nil
}

// undoPredictor reverses the differencing of every row of chunk in place
func (l *tiffLayout) undoPredictor(chunk []byte) {
	rb := l.rowBytes()
	stride := l.chunkSamples()
	bps := l.bits / 8
	for off := 0; off+rb <= len(chunk); off += rb {
		row := chunk[off : off+rb]
		if l.predictor == predictorFloat {
			undoFloatPredictor(row, stride, bps, l.order)
		} else {
			undoHorizontal(row, stride, bps, l.order)
		}
	}
}

func undoHorizontal(row []byte, stride, bps int, order binary.ByteOrder) {
	n := len(row) / bps
	switch bps {
	case 1:
		for i := stride; i < n; i++ {
			row[i] += row[i-stride]
		}
	case 2:
		for i := stride; i < n; i++ {
			order.PutUint16(row[2*i:], order.Uint16(row[2*i:])+order.Uint16(row[2*(i-stride):]))
		}
	case 4:
		for i := stride; i < n; i++ {
			order.PutUint32(row[4*i:], order.Uint32(row[4*i:])+order.Uint32(row[4*(i-stride):]))
		}
	case 8:
		for i := stride; i < n; i++ {
			order.PutUint64(row[8*i:], order.Uint64(row[8*i:])+order.Uint64(row[8*(i-stride):]))
		}
	}
}

// undoFloatPredictor reverses the floating point predictor: bytes are
// differenced across the row, and stored as byte planes with the most
// significant plane first. The row is rewritten in the file's byte order.
func undoFloatPredictor(row []byte, stride, bps int, order binary.ByteOrder) {
	for i := stride; i < len(row); i++ {
		row[i] += row[i-stride]
	}
	planes := append([]byte(nil), row...)
	wc := len(row) / bps
	little := order == binary.LittleEndian
	for i := 0; i < wc; i++ {
		for b := 0; b < bps; b++ {
			v := planes[b*wc+i]
			if little {
				row[i*bps+bps-1-b] = v
			} else {
				row[i*bps+b] = v
			}
		}
	}
}

// sampleReader returns a function decoding sample i of a row
func (l *tiffLayout) sampleReader() func(row []byte, i int) float32 {
	o := l.order
	switch l.bits {
	case 1, 2, 4:
		bits := l.bits
		mask := byte(1<<bits - 1)
		return func(row []byte, i int) float32 {
			pos := i * bits
			return float32(row[pos/8] >> (8 - bits - pos%8) & mask)
		}
	case 8:
		if l.format == sampleInt {
			return func(row []byte, i int) float32 { return float32(int8(row[i])) }
		}
		return func(row []byte, i int) float32 { return float32(row[i]) }
	case 16:
		if l.format == sampleInt {
			return func(row []byte, i int) float32 { return float32(int16(o.Uint16(row[2*i:]))) }
		}
		return func(row []byte, i int) float32 { return float32(o.Uint16(row[2*i:])) }
	case 32:
		switch l.format {
		case sampleFloat:
			return func(row []byte, i int) float32 { return math.Float32frombits(o.Uint32(row[4*i:])) }
		case sampleInt:
			return func(row []byte, i int) float32 { return float32(int32(o.Uint32(row[4*i:]))) }
		}
		return func(row []byte, i int) float32 { return float32(o.Uint32(row[4*i:])) }
	default:
		switch l.format {
		case sampleFloat:
			return func(row []byte, i int) float32 { return float32(math.Float64frombits(o.Uint64(row[8*i:]))) }
		case sampleInt:
			return func(row []byte, i int) float32 { return float32(int64(o.Uint64(row[8*i:]))) }
		}
		return func(row []byte, i int) float32 { return float32(o.Uint64(row[8*i:])) }
	}
}

// extract copies band out of decoded chunks into a row-major grid
func (l *tiffLayout) extract(chunks [][]byte, band int) *Band {
	out := &Band{Index: band, Width: l.width, Height: l.height, Samples: make([]float32, l.width*l.height)}

	cs, s := l.chunkSamples(), band
	if l.separate() {
		s = 0
	}
	rb := l.rowBytes()
	read := l.sampleReader()

	for k, chunk := range chunks {
		x0 := (k % l.across) * l.chunkWidth
		y0 := (k / l.across) * l.chunkHeight
		for y := 0; y < l.chunkHeight && y0+y < l.height; y++ {
			row := chunk[y*rb : (y+1)*rb]
			dst := out.Samples[(y0+y)*l.width:]
			for x := 0; x < l.chunkWidth && x0+x < l.width; x++ {
				dst[x0+x] = read(row, x*cs+s)
			}
		}
	}
	return out
}
