// Package domain models geocoded species occurrence records from tropical
// dry forest survey plots and their enrichment with gridded climate data.
//
// # Data Sources
//
// Three inputs drive a run. The plot inventory spreadsheet lists accepted
// taxa with their family (columns "Familia" and "Accepted_name"). The
// Red List spreadsheet maps taxon names to IUCN conservation categories
// (columns "Check_TaxonName" and "IUCN_Red_List"). The occurrence archive
// is a zip holding one tabular file of geocoded observations whose header
// includes "sci_name", "longitude" and "latitude"; extra columns are
// ignored. All cell values are whitespace-trimmed on load; after that,
// species-name matching is exact byte equality with no fuzzy or
// case-insensitive fallback.
//
// # Coordinates
//
// Occurrence coordinates are decimal-degree longitude/latitude assumed, not
// verified, to be WGS-84 (see [CRS]). The planar X/Y columns carried into
// per-species output files copy longitude and latitude directly; no
// reprojection is performed anywhere in the pipeline.
//
// # Climate Conventions
//
// Climate values come from WorldClim-style layers: one raster band per
// calendar month, twelve bands per variable. Monthly mean temperature grids
// store tenths of a degree Celsius as signed 16-bit integers (182 = 18.2 °C);
// the sampling adapter applies the 0.1 scale so every value in this package
// is in natural units (°C, mm). Monthly precipitation is millimetres,
// unscaled. The grid nodata sentinel is -9999.
//
// # Missing Values
//
// A point outside raster coverage, a nodata cell, a species with no
// occurrence records, or a taxon absent from the Red List all produce
// missing values, never errors. Missing numerics are nil *float64, missing
// categories nil *string; both serialize to empty CSV fields. Means are
// null-safe: non-nil values are averaged, an all-nil input yields nil
// (missing, not zero). See [Mean].
//
// # Output Shape
//
// Every species in the (sorted) plot inventory yields exactly one
// [SpeciesSummary] row and one per-species occurrence file, present even
// when the species has no occurrence records (the file is then header-only).
// Per-species file names replace spaces in the taxon name with underscores,
// e.g. "Quercus costaricensis" -> "Quercus_costaricensis.csv". See
// [SpeciesFileName].
package domain
