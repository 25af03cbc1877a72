package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupported indicates a well-formed TIFF that uses a storage feature
// the decoder does not read
var ErrUnsupported = errors.New("unsupported tiff feature")

// Tags read from the first image file directory
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagExtraSamples    = 338
	tagSampleFormat    = 339
)

// Field types
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtIFD       = 13
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

var typeSizes = map[uint16]int{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSByte: 1, dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8,
	dtFloat: 4, dtDouble: 8, dtIFD: 4, dtLong8: 8, dtSLong8: 8, dtIFD8: 8,
}

const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionPackBits   = 32773
	compressionDeflateOld = 32946
)

const (
	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

const (
	planarChunky   = 1
	planarSeparate = 2
)

const (
	predictorNone       = 1
	predictorHorizontal = 2
	predictorFloat      = 3
)

const photometricYCbCr = 6

// maxChunkBytes bounds the decoded size of one strip or tile
const maxChunkBytes = 1 << 31

type ifdEntry struct {
	typ   uint16
	count uint64
	data  []byte
}

// ifd holds the entries of one image file directory with their values
// resolved to byte slices of the file
type ifd struct {
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

// parseIFD reads the header and the first IFD of a classic or BigTIFF file
func parseIFD(data []byte) (*ifd, error) {
	if len(data) < 8 {
		return nil, errors.New("tiff: file too short")
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("tiff: bad byte order marker")
	}

	var offset uint64
	big := false
	switch order.Uint16(data[2:4]) {
	case 42:
		offset = uint64(order.Uint32(data[4:8]))
	case 43:
		if len(data) < 16 || order.Uint16(data[4:6]) != 8 {
			return nil, errors.New("tiff: bad BigTIFF header")
		}
		offset = order.Uint64(data[8:16])
		big = true
	default:
		return nil, errors.New("tiff: bad version")
	}

	countSize, entrySize, valueSize := uint64(2), uint64(12), uint64(4)
	if big {
		countSize, entrySize, valueSize = 8, 20, 8
	}
	size := uint64(len(data))
	if offset > size || countSize > size-offset {
		return nil, fmt.Errorf("tiff: IFD offset %d outside file", offset)
	}

	var n uint64
	if big {
		n = order.Uint64(data[offset:])
	} else {
		n = uint64(order.Uint16(data[offset:]))
	}
	start := offset + countSize
	if n > (size-start)/entrySize {
		return nil, fmt.Errorf("tiff: %d IFD entries overrun the file", n)
	}

	d := &ifd{order: order, entries: make(map[uint16]ifdEntry, n)}
	for i := uint64(0); i < n; i++ {
		e := data[start+i*entrySize:]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])

		var count uint64
		var val []byte
		if big {
			count = order.Uint64(e[4:12])
			val = e[12:20]
		} else {
			count = uint64(order.Uint32(e[4:8]))
			val = e[8:12]
		}

		width, ok := typeSizes[typ]
		if !ok {
			continue
		}
		if count > size {
			return nil, fmt.Errorf("tiff: tag %d count %d overruns the file", tag, count)
		}
		length := count * uint64(width)
		if length > valueSize {
			var off uint64
			if big {
				off = order.Uint64(val)
			} else {
				off = uint64(order.Uint32(val))
			}
			if off > size || length > size-off {
				return nil, fmt.Errorf("tiff: tag %d value outside file", tag)
			}
			val = data[off : off+length]
		} else {
			val = val[:length]
		}
		d.entries[tag] = ifdEntry{typ: typ, count: count, data: val}
	}
	return d, nil
}

// uints returns the integer values of tag, or nil when the tag is absent
func (d *ifd) uints(tag uint16) ([]uint64, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, nil
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case dtByte, dtUndefined:
			out[i] = uint64(e.data[i])
		case dtShort:
			out[i] = uint64(d.order.Uint16(e.data[2*i:]))
		case dtLong, dtIFD:
			out[i] = uint64(d.order.Uint32(e.data[4*i:]))
		case dtLong8, dtIFD8:
			out[i] = d.order.Uint64(e.data[8*i:])
		default:
			return nil, fmt.Errorf("tiff: tag %d has non-integer type %d", tag, e.typ)
		}
	}
	return out, nil
}

// uniform returns the single value shared by every entry of tag, def when
// the tag is absent
func (d *ifd) uniform(tag uint16, def uint64) (uint64, error) {
	vals, err := d.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return def, nil
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return 0, fmt.Errorf("%w: tag %d differs between samples %v", ErrUnsupported, tag, vals)
		}
	}
	return vals[0], nil
}

// tiffLayout describes how the samples of the first image are stored
type tiffLayout struct {
	order         binary.ByteOrder
	width, height int
	samples       int
	bits          int
	format        int
	compression   int
	predictor     int
	planar        int
	tiled         bool

	// chunkWidth and chunkHeight are the tile size, or the image width
	// and rows per strip
	chunkWidth, chunkHeight int
	across, down            int

	offsets []uint64
	counts  []uint64
}

// parseLayout validates the first IFD and resolves its storage layout
func parseLayout(data []byte) (*tiffLayout, error) {
	d, err := parseIFD(data)
	if err != nil {
		return nil, err
	}
	l := &tiffLayout{order: d.order}

	width, err := d.uniform(tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	height, err := d.uniform(tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, errors.New("tiff: missing image dimensions")
	}
	if width > math.MaxInt32 || height > math.MaxInt32 || width*height > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrUnsupported, width, height)
	}
	l.width, l.height = int(width), int(height)

	spp, err := d.uniform(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp == 0 || spp > math.MaxUint16 {
		return nil, fmt.Errorf("tiff: samples per pixel %d", spp)
	}
	l.samples = int(spp)

	extra, err := d.uints(tagExtraSamples)
	if err != nil {
		return nil, err
	}
	if len(extra) > l.samples {
		return nil, fmt.Errorf("tiff: %d extra samples for %d samples per pixel", len(extra), l.samples)
	}

	bits, err := d.uniform(tagBitsPerSample, 1)
	if err != nil {
		return nil, err
	}
	format, err := d.uniform(tagSampleFormat, sampleUint)
	if err != nil {
		return nil, err
	}
	l.bits, l.format = int(bits), int(format)
	if err := l.checkSamples(); err != nil {
		return nil, err
	}

	photometric, err := d.uniform(tagPhotometric, 1)
	if err != nil {
		return nil, err
	}
	if photometric == photometricYCbCr {
		return nil, fmt.Errorf("%w: YCbCr photometric interpretation", ErrUnsupported)
	}

	compression, err := d.uniform(tagCompression, compressionNone)
	if err != nil {
		return nil, err
	}
	switch compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld, compressionPackBits:
		l.compression = int(compression)
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, compression)
	}

	planar, err := d.uniform(tagPlanarConfig, planarChunky)
	if err != nil {
		return nil, err
	}
	if planar != planarChunky && planar != planarSeparate {
		return nil, fmt.Errorf("tiff: planar configuration %d", planar)
	}
	l.planar = int(planar)

	predictor, err := d.uniform(tagPredictor, predictorNone)
	if err != nil {
		return nil, err
	}
	l.predictor = int(predictor)
	switch {
	case predictor == predictorNone:
	case predictor == predictorHorizontal && l.bits >= 8:
	case predictor == predictorFloat && l.format == sampleFloat:
	default:
		return nil, fmt.Errorf("%w: predictor %d with %d-bit samples", ErrUnsupported, predictor, l.bits)
	}

	if err := l.parseChunks(d); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *tiffLayout) checkSamples() error {
	switch l.format {
	case sampleUint:
		switch l.bits {
		case 1, 2, 4, 8, 16, 32, 64:
			return nil
		}
	case sampleInt:
		switch l.bits {
		case 8, 16, 32, 64:
			return nil
		}
	case sampleFloat:
		switch l.bits {
		case 32, 64:
			return nil
		}
	default:
		return fmt.Errorf("%w: sample format %d", ErrUnsupported, l.format)
	}
	return fmt.Errorf("%w: %d-bit samples of format %d", ErrUnsupported, l.bits, l.format)
}

// parseChunks resolves the strip or tile grid and its offsets
func (l *tiffLayout) parseChunks(d *ifd) error {
	offsetTag, countTag := uint16(tagStripOffsets), uint16(tagStripByteCounts)

	if _, ok := d.entries[tagTileWidth]; ok {
		tw, err := d.uniform(tagTileWidth, 0)
		if err != nil {
			return err
		}
		th, err := d.uniform(tagTileLength, 0)
		if err != nil {
			return err
		}
		if tw == 0 || th == 0 || tw > math.MaxInt32 || th > math.MaxInt32 {
			return fmt.Errorf("tiff: tile size %dx%d", tw, th)
		}
		l.tiled = true
		l.chunkWidth, l.chunkHeight = int(tw), int(th)
		offsetTag, countTag = tagTileOffsets, tagTileByteCounts
	} else {
		rps, err := d.uniform(tagRowsPerStrip, math.MaxUint32)
		if err != nil {
			return err
		}
		if rps == 0 || rps > uint64(l.height) {
			rps = uint64(l.height)
		}
		l.chunkWidth, l.chunkHeight = l.width, int(rps)
	}

	cs := l.chunkSamples()
	if uint64(l.chunkWidth)*uint64(cs)*uint64(l.bits)/8*uint64(l.chunkHeight) > maxChunkBytes {
		return fmt.Errorf("%w: %dx%d chunks", ErrUnsupported, l.chunkWidth, l.chunkHeight)
	}
	l.across = (l.width + l.chunkWidth - 1) / l.chunkWidth
	l.down = (l.height + l.chunkHeight - 1) / l.chunkHeight
	want := l.across * l.down * l.planes()

	offsets, err := d.uints(offsetTag)
	if err != nil {
		return err
	}
	if len(offsets) < want {
		return fmt.Errorf("tiff: %d chunk offsets, want %d", len(offsets), want)
	}
	counts, err := d.uints(countTag)
	if err != nil {
		return err
	}
	if counts == nil && l.compression == compressionNone {
		counts = make([]uint64, want)
		for k := range counts {
			counts[k] = uint64(l.chunkBytes(k % (l.across * l.down)))
		}
	}
	if len(counts) < want {
		return fmt.Errorf("tiff: %d chunk byte counts, want %d", len(counts), want)
	}
	l.offsets, l.counts = offsets[:want], counts[:want]
	return nil
}

// separate reports whether every band is stored in its own plane
func (l *tiffLayout) separate() bool {
	return l.planar == planarSeparate && l.samples > 1
}

func (l *tiffLayout) planes() int {
	if l.separate() {
		return l.samples
	}
	return 1
}

// chunkSamples is the number of interleaved samples per pixel in a chunk
func (l *tiffLayout) chunkSamples() int {
	if l.separate() {
		return 1
	}
	return l.samples
}

// rowBytes is the byte length of one row of a chunk
func (l *tiffLayout) rowBytes() int {
	return (l.chunkWidth*l.chunkSamples()*l.bits + 7) / 8
}

// chunkRows is the number of rows stored in chunk k of a plane. The last
// strip may be short; tiles are always full.
func (l *tiffLayout) chunkRows(k int) int {
	if l.tiled {
		return l.chunkHeight
	}
	y0 := (k / l.across) * l.chunkHeight
	return min(l.chunkHeight, l.height-y0)
}

func (l *tiffLayout) chunkBytes(k int) int {
	return l.chunkRows(k) * l.rowBytes()
}
