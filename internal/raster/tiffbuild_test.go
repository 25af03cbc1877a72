package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// tiffField is one IFD entry of a hand-built TIFF
type tiffField struct {
	tag    uint16
	typ    uint16
	values []uint64
}

// tiffFile writes TIFFs with layouts golang.org/x/image/tiff cannot encode.
// Chunks are strips unless tiled is set; their offsets and byte counts are
// filled in by encode.
type tiffFile struct {
	order  binary.ByteOrder
	big    bool
	tiled  bool
	fields []tiffField
	chunks [][]byte
}

// newTIFFFile starts a file of width x height with spp samples of bits
// bits in the given sample format
func newTIFFFile(order binary.ByteOrder, width, height, spp, bits, format int) *tiffFile {
	perSample := func(v int) []uint64 {
		out := make([]uint64, spp)
		for i := range out {
			out[i] = uint64(v)
		}
		return out
	}
	photometric := uint64(1)
	if spp >= 3 {
		photometric = 2
	}
	return &tiffFile{
		order: order,
		fields: []tiffField{
			{tagImageWidth, dtLong, []uint64{uint64(width)}},
			{tagImageLength, dtLong, []uint64{uint64(height)}},
			{tagBitsPerSample, dtShort, perSample(bits)},
			{tagPhotometric, dtShort, []uint64{photometric}},
			{tagSamplesPerPixel, dtShort, []uint64{uint64(spp)}},
			{tagSampleFormat, dtShort, perSample(format)},
		},
	}
}

func (f *tiffFile) set(tag, typ uint16, values ...uint64) *tiffFile {
	for i, fd := range f.fields {
		if fd.tag == tag {
			f.fields[i] = tiffField{tag, typ, values}
			return f
		}
	}
	f.fields = append(f.fields, tiffField{tag, typ, values})
	return f
}

func (f *tiffFile) chunk(b []byte) *tiffFile {
	f.chunks = append(f.chunks, b)
	return f
}

func (f *tiffFile) put(buf *bytes.Buffer, size int, v uint64) {
	b := make([]byte, size)
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		f.order.PutUint16(b, uint16(v))
	case 4:
		f.order.PutUint32(b, uint32(v))
	case 8:
		f.order.PutUint64(b, v)
	}
	buf.Write(b)
}

func (f *tiffFile) encode() []byte {
	headerLen, countSize, entrySize, inline := 8, 2, 12, 4
	if f.big {
		headerLen, countSize, entrySize, inline = 16, 8, 20, 8
	}

	var body bytes.Buffer
	offsets := make([]uint64, len(f.chunks))
	counts := make([]uint64, len(f.chunks))
	for i, c := range f.chunks {
		offsets[i] = uint64(headerLen + body.Len())
		counts[i] = uint64(len(c))
		body.Write(c)
	}

	offsetTag, countTag := uint16(tagStripOffsets), uint16(tagStripByteCounts)
	if f.tiled {
		offsetTag, countTag = tagTileOffsets, tagTileByteCounts
	}
	ptr := uint16(dtLong)
	if f.big {
		ptr = dtLong8
	}
	fields := append([]tiffField(nil), f.fields...)
	fields = append(fields, tiffField{offsetTag, ptr, offsets}, tiffField{countTag, ptr, counts})
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	ifdOffset := headerLen + body.Len()
	areaStart := ifdOffset + countSize + len(fields)*entrySize + inline

	var dir, area bytes.Buffer
	f.put(&dir, countSize, uint64(len(fields)))
	for _, fd := range fields {
		f.put(&dir, 2, uint64(fd.tag))
		f.put(&dir, 2, uint64(fd.typ))
		f.put(&dir, inline, uint64(len(fd.values)))

		var val bytes.Buffer
		for _, v := range fd.values {
			f.put(&val, typeSizes[fd.typ], v)
		}
		if val.Len() <= inline {
			val.Write(make([]byte, inline-val.Len()))
			dir.Write(val.Bytes())
		} else {
			f.put(&dir, inline, uint64(areaStart+area.Len()))
			area.Write(val.Bytes())
		}
	}
	f.put(&dir, inline, 0)

	var out bytes.Buffer
	if f.order == binary.LittleEndian {
		out.WriteString("II")
	} else {
		out.WriteString("MM")
	}
	if f.big {
		f.put(&out, 2, 43)
		f.put(&out, 2, 8)
		f.put(&out, 2, 0)
		f.put(&out, 8, uint64(ifdOffset))
	} else {
		f.put(&out, 2, 42)
		f.put(&out, 4, uint64(ifdOffset))
	}
	out.Write(body.Bytes())
	out.Write(dir.Bytes())
	out.Write(area.Bytes())
	return out.Bytes()
}

func (f *tiffFile) write(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, f.encode(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Sample packers in a given byte order

func pack16(o binary.ByteOrder, vals ...uint16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		o.PutUint16(b[2*i:], v)
	}
	return b
}

func packF32(o binary.ByteOrder, vals ...float32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		o.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func packF64(o binary.ByteOrder, vals ...float64) []byte {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		o.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return b
}

// floatPredict applies the floating point predictor to one row of
// float32 samples with stride interleaved samples per pixel
func floatPredict(vals []float32, stride int) []byte {
	const bps = 4
	wc := len(vals)
	row := make([]byte, bps*wc)
	for i, v := range vals {
		bits := math.Float32bits(v)
		for b := 0; b < bps; b++ {
			row[b*wc+i] = byte(bits >> (8 * (bps - 1 - b)))
		}
	}
	for i := len(row) - 1; i >= stride; i-- {
		row[i] -= row[i-stride]
	}
	return row
}
