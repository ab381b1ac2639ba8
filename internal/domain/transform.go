package domain

import "strings"

// Georeference derives the planar X/Y columns from an occurrence's
// geographic coordinates. The point is taken to be in WGS-84 (see CRS), so
// X copies longitude and Y copies latitude with no reprojection.
func Georeference(occ Occurrence) Occurrence {
	occ.X = occ.Longitude
	occ.Y = occ.Latitude
	return occ
}

// Mean returns the arithmetic mean of the non-nil values. When every value
// is nil the mean is nil too: missing, never zero.
func Mean(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// Annualize fills a record's annual means from its monthly samples,
// ignoring missing months. A record with all twelve months missing keeps a
// missing annual mean.
func Annualize(occ Occurrence) Occurrence {
	occ.AnnualMeanTemperature = Mean(occ.MonthlyTemperature[:])
	occ.AnnualMeanPrecipitation = Mean(occ.MonthlyPrecipitation[:])
	return occ
}

// FilterBySpecies returns the occurrences whose species name equals name
// exactly, preserving input order.
func FilterBySpecies(occurrences []Occurrence, name string) []Occurrence {
	var matched []Occurrence
	for _, occ := range occurrences {
		if occ.Species == name {
			matched = append(matched, occ)
		}
	}
	return matched
}

// Summarize builds the summary row for one species from its matching
// occurrence records. With no occurrences, or none carrying annual means,
// both summary means stay nil. The Red List category is joined separately
// by JoinCategories.
func Summarize(sp Species, occurrences []Occurrence) SpeciesSummary {
	temperatures := make([]*float64, 0, len(occurrences))
	precipitations := make([]*float64, 0, len(occurrences))
	for _, occ := range occurrences {
		temperatures = append(temperatures, occ.AnnualMeanTemperature)
		precipitations = append(precipitations, occ.AnnualMeanPrecipitation)
	}

	return SpeciesSummary{
		Family:                  sp.Family,
		Species:                 sp.Name,
		MeanAnnualTemperature:   Mean(temperatures),
		MeanAnnualPrecipitation: Mean(precipitations),
	}
}

// JoinCategories left-joins the summary rows against the Red List by exact
// species-name equality. Rows without a match keep a nil category; row
// count and order never change.
func JoinCategories(rows []SpeciesSummary, redList RedList) []SpeciesSummary {
	joined := make([]SpeciesSummary, len(rows))
	for i, row := range rows {
		row.Category = redList.Category(row.Species)
		joined[i] = row
	}
	return joined
}

// SpeciesFileName derives the per-species output file name from a taxon
// name: spaces become underscores and ".csv" is appended.
// "Quercus costaricensis" -> "Quercus_costaricensis.csv".
func SpeciesFileName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_") + ".csv"
}
