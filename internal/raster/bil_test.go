package raster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const worldclimHeader = `BYTEORDER      I
LAYOUT       BIL
NROWS         900
NCOLS         2160
NBANDS        1
NBITS         16
BANDROWBYTES         4320
TOTALROWBYTES        4320
BANDGAPBYTES         0
NODATA        -9999
ULXMAP        -179.91666666667
ULYMAP        89.91666666667
XDIM          0.16666666667
YDIM          0.16666666667
`

func TestParseHeader(t *testing.T) {
	t.Run("worldclim sidecar", func(t *testing.T) {
		hdr, err := ParseHeader(strings.NewReader(worldclimHeader))

		require.NoError(t, err)
		assert.Equal(t, 900, hdr.Rows)
		assert.Equal(t, 2160, hdr.Cols)
		assert.Equal(t, 1, hdr.Bands)
		assert.Equal(t, 16, hdr.NBits)
		assert.Equal(t, -9999, hdr.NoData)
		assert.True(t, hdr.LittleEndian)
		assert.InDelta(t, -179.91666666667, hdr.ULX, 1e-9)
		assert.InDelta(t, 89.91666666667, hdr.ULY, 1e-9)
		assert.InDelta(t, 0.16666666667, hdr.XDim, 1e-9)
		assert.InDelta(t, 0.16666666667, hdr.YDim, 1e-9)
	})

	t.Run("defaults for absent keys", func(t *testing.T) {
		hdr, err := ParseHeader(strings.NewReader("NROWS 2\nNCOLS 3\nULXMAP 0.5\nULYMAP 1.5\nXDIM 1\nYDIM 1\n"))

		require.NoError(t, err)
		assert.Equal(t, 1, hdr.Bands)
		assert.Equal(t, 16, hdr.NBits)
		assert.Equal(t, DefaultNoData, hdr.NoData)
		assert.True(t, hdr.LittleEndian)
	})

	t.Run("motorola byte order", func(t *testing.T) {
		hdr, err := ParseHeader(strings.NewReader("BYTEORDER M\nNROWS 1\nNCOLS 1\nXDIM 1\nYDIM 1\n"))

		require.NoError(t, err)
		assert.False(t, hdr.LittleEndian)
	})

	t.Run("blank and unknown lines ignored", func(t *testing.T) {
		_, err := ParseHeader(strings.NewReader("\nPIXELTYPE SIGNEDINT\nNROWS 1\nNCOLS 1\nXDIM 1\nYDIM 1\n"))
		assert.NoError(t, err)
	})

	tests := []struct {
		name    string
		header  string
		wantErr string
	}{
		{"unsupported layout", "LAYOUT BIP\nNROWS 1\nNCOLS 1\nXDIM 1\nYDIM 1\n", "unsupported layout"},
		{"unsupported bit depth", "NBITS 32\nNROWS 1\nNCOLS 1\nXDIM 1\nYDIM 1\n", "unsupported sample width"},
		{"multi-band rejected", "NBANDS 12\nNROWS 1\nNCOLS 1\nXDIM 1\nYDIM 1\n", "band count"},
		{"missing dimensions", "XDIM 1\nYDIM 1\n", "grid"},
		{"missing cell size", "NROWS 1\nNCOLS 1\n", "cell size"},
		{"malformed integer", "NROWS abc\nNCOLS 1\nXDIM 1\nYDIM 1\n", "header NROWS"},
		{"malformed float", "NROWS 1\nNCOLS 1\nXDIM wide\nYDIM 1\n", "header XDIM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(strings.NewReader(tt.header))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadGrid(t *testing.T) {
	hdr := Header{Rows: 2, Cols: 3, Bands: 1, NBits: 16, NoData: DefaultNoData, LittleEndian: true, ULX: 0.5, ULY: 1.5, XDim: 1, YDim: 1}
	cells := []int16{10, 20, 30, 40, -9999, 60}

	t.Run("round trip through encoder", func(t *testing.T) {
		data, err := EncodeGrid(hdr, cells)
		require.NoError(t, err)

		grid, err := ReadGrid(hdr, bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, cells, grid.cells)
	})

	t.Run("big endian round trip", func(t *testing.T) {
		be := hdr
		be.LittleEndian = false
		data, err := EncodeGrid(be, cells)
		require.NoError(t, err)

		grid, err := ReadGrid(be, bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, cells, grid.cells)
	})

	t.Run("truncated data", func(t *testing.T) {
		data, err := EncodeGrid(hdr, cells)
		require.NoError(t, err)

		_, err = ReadGrid(hdr, bytes.NewReader(data[:len(data)-2]))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "header declares")
	})
}

func TestEncodeGrid(t *testing.T) {
	hdr := Header{Rows: 2, Cols: 2, XDim: 1, YDim: 1}

	_, err := EncodeGrid(hdr, []int16{1, 2, 3})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2x2")
}

func TestEncodeHeaderRoundTrip(t *testing.T) {
	in := Header{Rows: 4, Cols: 5, NoData: -9999, ULX: -83.5, ULY: 10.5, XDim: 0.5, YDim: 0.5}

	hdr, err := ParseHeader(bytes.NewReader(EncodeHeader(in)))

	require.NoError(t, err)
	assert.Equal(t, 4, hdr.Rows)
	assert.Equal(t, 5, hdr.Cols)
	assert.Equal(t, 1, hdr.Bands)
	assert.Equal(t, 16, hdr.NBits)
	assert.True(t, hdr.LittleEndian)
	assert.InDelta(t, -83.5, hdr.ULX, 1e-9)
	assert.InDelta(t, 10.5, hdr.ULY, 1e-9)
	assert.InDelta(t, 0.5, hdr.XDim, 1e-9)
	assert.InDelta(t, 0.5, hdr.YDim, 1e-9)
}
