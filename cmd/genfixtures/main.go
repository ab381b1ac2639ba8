// Command genfixtures writes a complete synthetic input set for offline runs
// and integration tests: both spreadsheets, the occurrence archive, and a
// pair of WorldClim-style layer archives seeded straight into the cache so a
// pipeline run needs no network. The rasters cover a Guanacaste dry-forest
// box; the westernmost column is left as nodata ocean.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data -cache data/worldclim
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"

	"github.com/terrabiota/plotclim/internal/raster"
)

// gridHeader frames the synthetic rasters: a 4x8 grid of quarter-degree
// cells spanning lon [-86,-85) by lat [9.5,11.5).
var gridHeader = raster.Header{
	Rows:         8,
	Cols:         4,
	NoData:       raster.DefaultNoData,
	LittleEndian: true,
	ULX:          -85.875,
	ULY:          11.375,
	XDim:         0.25,
	YDim:         0.25,
}

// Occurrences are scattered inside the data-bearing columns of the grid.
const (
	lonMin, lonMax = -85.70, -85.06
	latMin, latMax = 9.60, 11.30
)

type plotSpecies struct {
	family string
	name   string
	count  int // occurrence records to scatter
}

var inventory = []plotSpecies{
	{"Anacardiaceae", "Astronium graveolens", 4},
	{"Anacardiaceae", "Spondias mombin", 3},
	{"Bignoniaceae", "Handroanthus impetiginosus", 2},
	{"Bignoniaceae", "Tabebuia rosea", 6},
	{"Fabaceae", "Dalbergia retusa", 3},
	{"Fabaceae", "Enterolobium cyclocarpum", 5},
	{"Fabaceae", "Hymenaea courbaril", 2},
	{"Fabaceae", "Samanea saman", 3},
	{"Malvaceae", "Ceiba pentandra", 4},
	{"Malvaceae", "Guazuma ulmifolia", 5},
	{"Meliaceae", "Cedrela odorata", 2},
	{"Meliaceae", "Swietenia macrophylla", 1},
	{"Moraceae", "Brosimum alicastrum", 3},
	{"Rubiaceae", "Calycophyllum candidissimum", 0},
	{"Zygophyllaceae", "Guaiacum sanctum", 1},
}

type redListEntry struct {
	taxon    string
	category string
}

// redListEntries mixes matches, a blank assessment, and taxa the inventory
// never mentions, so a run over the fixtures exercises every join case.
var redListEntries = []redListEntry{
	{"Astronium graveolens", "LC"},
	{"Brosimum alicastrum", ""},
	{"Cedrela odorata", "VU"},
	{"Dalbergia retusa", "CR"},
	{"Guaiacum sanctum", "EN"},
	{"Handroanthus impetiginosus", "NT"},
	{"Hymenaea courbaril", "LC"},
	{"Pachira quinata", "EN"},
	{"Swietenia macrophylla", "VU"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data", "directory receiving the input fixtures")
	cacheDir := flag.String("cache", filepath.Join("data", "worldclim"), "climate layer cache to seed")
	resolution := flag.String("resolution", "10m", "resolution tag used in the archive names")
	seed := flag.Int64("seed", 42, "seed for the occurrence scatter")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
		return err
	}

	r := rand.New(rand.NewSource(*seed))

	// Fixed clock for reproducible collection dates.
	fake := clockwork.NewFakeClockAt(time.Date(2023, time.March, 14, 9, 0, 0, 0, time.UTC))
	nextDate := func() string {
		fake.Advance(31 * time.Hour)
		return fake.Now().Format("2006-01-02")
	}

	speciesPath := filepath.Join(*outDir, "especies_parcelas.xlsx")
	if err := writeWorkbook(speciesPath, speciesRows(r)); err != nil {
		return fmt.Errorf("writing %s: %w", speciesPath, err)
	}
	log.Printf("wrote %s: %d species", speciesPath, len(inventory))

	redListPath := filepath.Join(*outDir, "lista_roja.xlsx")
	if err := writeWorkbook(redListPath, redListRows(r)); err != nil {
		return fmt.Errorf("writing %s: %w", redListPath, err)
	}
	log.Printf("wrote %s: %d taxa", redListPath, len(redListEntries))

	occurrences := buildOccurrences(r, nextDate)
	csvData, err := occurrenceCSV(occurrences)
	if err != nil {
		return fmt.Errorf("rendering occurrence csv: %w", err)
	}
	archivePath := filepath.Join(*outDir, "bst_geocoded.zip")
	if err := writeZip(archivePath, []member{{name: "bst_geocoded.csv", data: csvData}}); err != nil {
		return fmt.Errorf("writing %s: %w", archivePath, err)
	}
	log.Printf("wrote %s: %d occurrences", archivePath, len(occurrences))

	variables := []struct {
		name  string
		cells func(month int) []int16
	}{
		{"tmean", temperatureCells},
		{"prec", precipitationCells},
	}
	for _, v := range variables {
		members, err := climateArchive(v.name, v.cells)
		if err != nil {
			return err
		}
		path := filepath.Join(*cacheDir, fmt.Sprintf("%s_%s_bil.zip", v.name, *resolution))
		if err := writeZip(path, members); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s", path)
	}

	printStats(occurrences)
	return nil
}

func speciesRows(r *rand.Rand) [][]any {
	rows := [][]any{{"Familia", "Accepted_name", "N_parcelas"}}
	for _, sp := range inventory {
		rows = append(rows, []any{sp.family, sp.name, r.Intn(12) + 1})
	}
	return rows
}

func redListRows(r *rand.Rand) [][]any {
	rows := [][]any{{"Check_TaxonName", "IUCN_Red_List", "Assessment_year"}}
	for _, e := range redListEntries {
		rows = append(rows, []any{e.taxon, e.category, 2015 + r.Intn(7)})
	}
	return rows
}

type occurrenceRow struct {
	name string
	lon  float64
	lat  float64
	date string
}

func buildOccurrences(r *rand.Rand, nextDate func() string) []occurrenceRow {
	var rows []occurrenceRow
	for _, sp := range inventory {
		for i := 0; i < sp.count; i++ {
			rows = append(rows, occurrenceRow{
				name: sp.name,
				lon:  lonMin + r.Float64()*(lonMax-lonMin),
				lat:  latMin + r.Float64()*(latMax-latMin),
				date: nextDate(),
			})
		}
	}

	// Field records for a taxon the plot inventory never lists.
	for i := 0; i < 3; i++ {
		rows = append(rows, occurrenceRow{
			name: "Cochlospermum vitifolium",
			lon:  lonMin + r.Float64()*(lonMax-lonMin),
			lat:  latMin + r.Float64()*(latMax-latMin),
			date: nextDate(),
		})
	}

	// Two points the grids cannot answer: one on the nodata column off the
	// Pacific coast, one east of the rasters entirely.
	rows = append(rows,
		occurrenceRow{name: "Tabebuia rosea", lon: -85.9012, lat: 10.5873, date: nextDate()},
		occurrenceRow{name: "Guazuma ulmifolia", lon: -84.4981, lat: 10.3402, date: nextDate()},
	)
	return rows
}

func occurrenceCSV(rows []occurrenceRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"sci_name", "longitude", "latitude", "collected_at"}); err != nil {
		return nil, err
	}
	for _, o := range rows {
		rec := []string{
			o.name,
			strconv.FormatFloat(o.lon, 'f', 4, 64),
			strconv.FormatFloat(o.lat, 'f', 4, 64),
			o.date,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Monthly offsets in tenths of a degree; the box runs warmest just before
// the rains arrive in May.
var temperatureWiggle = [raster.Months]int16{-6, -2, 4, 10, 6, 0, -2, -2, -4, -6, -8, -8}

// Monthly rainfall in millimetres at the driest cell; December through April
// is nearly rainless.
var monthlyRain = [raster.Months]int16{2, 1, 4, 28, 180, 230, 130, 160, 300, 320, 110, 12}

func temperatureCells(month int) []int16 {
	cells := make([]int16, gridHeader.Rows*gridHeader.Cols)
	for row := 0; row < gridHeader.Rows; row++ {
		for col := 0; col < gridHeader.Cols; col++ {
			i := row*gridHeader.Cols + col
			if col == 0 {
				cells[i] = raster.DefaultNoData
				continue
			}
			cells[i] = 262 + int16(6*col) - int16(4*row) + temperatureWiggle[month-1]
		}
	}
	return cells
}

func precipitationCells(month int) []int16 {
	cells := make([]int16, gridHeader.Rows*gridHeader.Cols)
	for row := 0; row < gridHeader.Rows; row++ {
		for col := 0; col < gridHeader.Cols; col++ {
			i := row*gridHeader.Cols + col
			if col == 0 {
				cells[i] = raster.DefaultNoData
				continue
			}
			cells[i] = monthlyRain[month-1] + int16(7*row) + int16(3*col)
		}
	}
	return cells
}

func climateArchive(variable string, cells func(month int) []int16) ([]member, error) {
	members := make([]member, 0, 2*raster.Months)
	for month := 1; month <= raster.Months; month++ {
		data, err := raster.EncodeGrid(gridHeader, cells(month))
		if err != nil {
			return nil, err
		}
		members = append(members,
			member{name: fmt.Sprintf("%s%d.bil", variable, month), data: data},
			member{name: fmt.Sprintf("%s%d.hdr", variable, month), data: raster.EncodeHeader(gridHeader)},
		)
	}
	return members, nil
}

type member struct {
	name string
	data []byte
}

func writeZip(path string, members []member) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			return err
		}
		if _, err := w.Write(m.data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func writeWorkbook(path string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func printStats(occurrences []occurrenceRow) {
	counts := map[string]int{}
	for _, o := range occurrences {
		counts[o.name]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Println("\n=== Fixture stats for test assertions ===")
	for _, n := range names {
		fmt.Printf("  %-30s %d\n", n, counts[n])
	}
	fmt.Printf("total: %d occurrences, %d inventory species, %d red list taxa\n",
		len(occurrences), len(inventory), len(redListEntries))
}
