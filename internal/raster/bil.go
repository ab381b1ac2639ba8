package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Months is the band count of a monthly climate variable.
const Months = 12

// DefaultNoData is the sentinel WorldClim grids use for cells without data.
const DefaultNoData = -9999

// Header describes one BIL band as declared by its .hdr sidecar file.
type Header struct {
	Rows   int
	Cols   int
	Bands  int // always 1 for WorldClim monthly layers
	NBits  int // sample width; only 16-bit integer grids are supported
	NoData int

	// BYTEORDER "I" (Intel) is little endian, "M" (Motorola) big endian.
	LittleEndian bool

	// ULX and ULY locate the centre of the upper-left cell. XDim and YDim
	// are the cell size in map units (decimal degrees for WorldClim).
	ULX  float64
	ULY  float64
	XDim float64
	YDim float64
}

func (h Header) byteOrder() binary.ByteOrder {
	if h.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ParseHeader reads a .hdr sidecar in the ESRI BIL dialect WorldClim ships:
// one "KEY value" pair per line. Unknown keys are ignored; absent keys fall
// back to the WorldClim defaults (single band, 16-bit, little endian,
// nodata -9999).
func ParseHeader(r io.Reader) (Header, error) {
	hdr := Header{Bands: 1, NBits: 16, NoData: DefaultNoData, LittleEndian: true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key := strings.ToUpper(fields[0])
		value := fields[1]

		var err error
		switch key {
		case "BYTEORDER":
			hdr.LittleEndian = !strings.EqualFold(value, "M")
		case "LAYOUT":
			if !strings.EqualFold(value, "BIL") {
				return Header{}, fmt.Errorf("unsupported layout %q", value)
			}
		case "NROWS":
			hdr.Rows, err = strconv.Atoi(value)
		case "NCOLS":
			hdr.Cols, err = strconv.Atoi(value)
		case "NBANDS":
			hdr.Bands, err = strconv.Atoi(value)
		case "NBITS":
			hdr.NBits, err = strconv.Atoi(value)
		case "NODATA":
			hdr.NoData, err = strconv.Atoi(value)
		case "ULXMAP":
			hdr.ULX, err = strconv.ParseFloat(value, 64)
		case "ULYMAP":
			hdr.ULY, err = strconv.ParseFloat(value, 64)
		case "XDIM":
			hdr.XDim, err = strconv.ParseFloat(value, 64)
		case "YDIM":
			hdr.YDim, err = strconv.ParseFloat(value, 64)
		}
		if err != nil {
			return Header{}, fmt.Errorf("header %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}

	switch {
	case hdr.Rows <= 0 || hdr.Cols <= 0:
		return Header{}, fmt.Errorf("header declares %dx%d grid", hdr.Rows, hdr.Cols)
	case hdr.Bands != 1:
		return Header{}, fmt.Errorf("unsupported band count %d", hdr.Bands)
	case hdr.NBits != 16:
		return Header{}, fmt.Errorf("unsupported sample width %d bits", hdr.NBits)
	case hdr.XDim <= 0 || hdr.YDim <= 0:
		return Header{}, errors.New("header missing cell size (XDIM/YDIM)")
	}
	return hdr, nil
}

// ReadGrid decodes the BIL band described by hdr into a Grid. The data
// length must match the header's declared dimensions exactly.
func ReadGrid(hdr Header, r io.Reader) (*Grid, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grid data: %w", err)
	}
	if want := hdr.Rows * hdr.Cols * 2; len(raw) != want {
		return nil, fmt.Errorf("grid data is %d bytes, header declares %d", len(raw), want)
	}

	order := hdr.byteOrder()
	cells := make([]int16, hdr.Rows*hdr.Cols)
	for i := range cells {
		cells[i] = int16(order.Uint16(raw[2*i:]))
	}
	return &Grid{Header: hdr, cells: cells}, nil
}

// EncodeHeader renders hdr as .hdr sidecar text. Zero Bands and NBits are
// written with their WorldClim defaults so sparse fixture headers stay
// valid.
func EncodeHeader(hdr Header) []byte {
	order := "I"
	if !hdr.LittleEndian {
		order = "M"
	}
	bands := hdr.Bands
	if bands == 0 {
		bands = 1
	}
	bits := hdr.NBits
	if bits == 0 {
		bits = 16
	}

	var b strings.Builder
	fmt.Fprintf(&b, "BYTEORDER      %s\n", order)
	fmt.Fprintf(&b, "LAYOUT       BIL\n")
	fmt.Fprintf(&b, "NROWS         %d\n", hdr.Rows)
	fmt.Fprintf(&b, "NCOLS         %d\n", hdr.Cols)
	fmt.Fprintf(&b, "NBANDS        %d\n", bands)
	fmt.Fprintf(&b, "NBITS         %d\n", bits)
	fmt.Fprintf(&b, "BANDROWBYTES         %d\n", hdr.Cols*2)
	fmt.Fprintf(&b, "TOTALROWBYTES        %d\n", hdr.Cols*2)
	fmt.Fprintf(&b, "BANDGAPBYTES         0\n")
	fmt.Fprintf(&b, "NODATA        %d\n", hdr.NoData)
	fmt.Fprintf(&b, "ULXMAP        %g\n", hdr.ULX)
	fmt.Fprintf(&b, "ULYMAP        %g\n", hdr.ULY)
	fmt.Fprintf(&b, "XDIM          %g\n", hdr.XDim)
	fmt.Fprintf(&b, "YDIM          %g\n", hdr.YDim)
	return []byte(b.String())
}

// EncodeGrid renders cell values as BIL bytes in hdr's byte order.
func EncodeGrid(hdr Header, cells []int16) ([]byte, error) {
	if len(cells) != hdr.Rows*hdr.Cols {
		return nil, fmt.Errorf("%d cells for a %dx%d grid", len(cells), hdr.Rows, hdr.Cols)
	}
	order := hdr.byteOrder()
	out := make([]byte, len(cells)*2)
	for i, v := range cells {
		order.PutUint16(out[2*i:], uint16(v))
	}
	return out, nil
}
