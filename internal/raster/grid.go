package raster

import "math"

// Grid is one decoded raster band. Cells are stored row-major from the
// north-west corner; rows run north to south.
type Grid struct {
	Header Header
	cells  []int16
}

// Sample returns the raw value of the cell containing the point, using
// nearest-cell semantics. The second return is false when the point lies
// outside the grid extent or the cell holds the nodata sentinel.
func (g *Grid) Sample(lon, lat float64) (int16, bool) {
	h := g.Header

	// ULXMAP/ULYMAP give the centre of the upper-left cell; shift by half a
	// cell to get the grid's outer edges.
	left := h.ULX - h.XDim/2
	top := h.ULY + h.YDim/2

	col := int(math.Floor((lon - left) / h.XDim))
	row := int(math.Floor((top - lat) / h.YDim))
	if col < 0 || col >= h.Cols || row < 0 || row >= h.Rows {
		return 0, false
	}

	v := g.cells[row*h.Cols+col]
	if int(v) == h.NoData {
		return 0, false
	}
	return v, true
}
