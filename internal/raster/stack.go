package raster

// Stack is the twelve monthly bands of one climate variable, January first.
type Stack struct {
	// Variable is the layer set's short name, e.g. "tmean" or "prec".
	Variable string

	// Scale converts stored cell integers to natural units. WorldClim
	// temperature grids store tenths of a degree Celsius, so their scale is
	// 0.1; precipitation is already in millimetres. Zero means unscaled.
	Scale float64

	Grids [Months]*Grid
}

// SampleMonths samples every monthly band at a point and applies the
// stack's scale, so returned values are in natural units. Months where the
// point is uncovered, the cell is nodata, or the band is absent are nil.
func (s *Stack) SampleMonths(lon, lat float64) [Months]*float64 {
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}

	var samples [Months]*float64
	for m, g := range s.Grids {
		if g == nil {
			continue
		}
		raw, ok := g.Sample(lon, lat)
		if !ok {
			continue
		}
		v := float64(raw) * scale
		samples[m] = &v
	}
	return samples
}
