package domain

// MonthsPerYear is the band count of each climate layer, one band per
// calendar month.
const MonthsPerYear = 12

// CRS identifies the coordinate reference system assigned to occurrence
// points. Source coordinates are assumed, not verified, to already be in it.
const CRS = "EPSG:4326"

// Occurrence is a single geocoded observation of a species at a point.
// Records are created once on load, enriched in place through the pipeline
// and never deleted; their terminal state lands in the per-species files.
type Occurrence struct {
	ID        int    // sequential, assigned on load starting at 1
	Species   string // scientific name, matched exactly against the inventory
	Longitude float64
	Latitude  float64

	// X and Y are planar copies of the coordinates used for non-spatial
	// joins and in per-species output files. Set by Georeference.
	X float64
	Y float64

	// Monthly climate samples, index 0 = January. Nil marks a point outside
	// raster coverage or on a nodata cell.
	MonthlyTemperature   [MonthsPerYear]*float64 // °C
	MonthlyPrecipitation [MonthsPerYear]*float64 // mm

	// Annual means over the monthly samples. Nil when all twelve months are
	// missing.
	AnnualMeanTemperature   *float64
	AnnualMeanPrecipitation *float64
}

// SpeciesSummary is one row of the final summary table: per-species means
// over the annual means of all matching occurrence records, plus the Red
// List category. Exactly one summary exists per inventory species,
// occurrence records or not.
type SpeciesSummary struct {
	Family  string
	Species string

	// Category is the IUCN Red List category, nil when the taxon is absent
	// from the lookup or its entry is blank.
	Category *string

	// Means over the occurrences' annual means, nil when the species has no
	// occurrence records or none of them carry a value.
	MeanAnnualTemperature   *float64
	MeanAnnualPrecipitation *float64
}
