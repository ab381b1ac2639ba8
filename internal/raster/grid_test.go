package raster

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGrid decodes cells into a Grid through the real codec.
func testGrid(t *testing.T, hdr Header, cells []int16) *Grid {
	t.Helper()
	data, err := EncodeGrid(hdr, cells)
	require.NoError(t, err)
	grid, err := ReadGrid(hdr, bytes.NewReader(data))
	require.NoError(t, err)
	return grid
}

func TestGridSample(t *testing.T) {
	// 3x2 grid of 1° cells spanning lon [0,3), lat [0,2): cell centres at
	// 0.5/1.5/2.5 by 0.5/1.5. Row 0 is the northern row.
	hdr := Header{Rows: 2, Cols: 3, NoData: DefaultNoData, LittleEndian: true, ULX: 0.5, ULY: 1.5, XDim: 1, YDim: 1}
	grid := testGrid(t, hdr, []int16{10, 20, 30, 40, -9999, 60})

	tests := []struct {
		name     string
		lon, lat float64
		want     int16
		ok       bool
	}{
		{"north-west cell centre", 0.5, 1.5, 10, true},
		{"off-centre point snaps to cell", 2.9, 1.1, 30, true},
		{"southern row", 2.5, 0.5, 60, true},
		{"top edge belongs to first row", 0.5, 2.0, 10, true},
		{"left edge belongs to first column", 0.0, 0.5, 40, true},
		{"nodata cell", 1.5, 0.5, 0, false},
		{"west of extent", -0.1, 0.5, 0, false},
		{"east edge is outside", 3.0, 0.5, 0, false},
		{"south of extent", 1.5, -0.001, 0, false},
		{"north of extent", 1.5, 2.001, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := grid.Sample(tt.lon, tt.lat)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestGridSampleNegativeCoordinates(t *testing.T) {
	// Western-hemisphere extent around the Costa Rican plots.
	hdr := Header{Rows: 2, Cols: 2, NoData: DefaultNoData, LittleEndian: true, ULX: -85.75, ULY: 10.75, XDim: 0.5, YDim: 0.5}
	grid := testGrid(t, hdr, []int16{182, 190, 201, 175})

	v, ok := grid.Sample(-85.6, 10.6)
	require.True(t, ok)
	assert.Equal(t, int16(182), v)

	v, ok = grid.Sample(-85.3, 10.2)
	require.True(t, ok)
	assert.Equal(t, int16(175), v)
}
