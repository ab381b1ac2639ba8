package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/terrabiota/plotclim/internal/domain"
)

// Column headers expected in the input spreadsheets.
const (
	familyColumn   = "Familia"
	speciesColumn  = "Accepted_name"
	taxonColumn    = "Check_TaxonName"
	categoryColumn = "IUCN_Red_List"
)

// Reader loads the two input spreadsheets from their configured paths.
type Reader struct {
	speciesPath string
	redListPath string
	logger      *slog.Logger
}

func NewReader(speciesPath, redListPath string, logger *slog.Logger) *Reader {
	return &Reader{
		speciesPath: speciesPath,
		redListPath: redListPath,
		logger:      logger,
	}
}

// Species reads the plot inventory: one row per accepted taxon with its
// family, renamed to domain fields and sorted by species name. Rows with a
// blank taxon cell are skipped.
func (r *Reader) Species(ctx context.Context) ([]domain.Species, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := sheetRows(r.speciesPath)
	if err != nil {
		return nil, err
	}
	cols, err := headerIndex(rows[0], familyColumn, speciesColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.speciesPath, err)
	}

	var list []domain.Species
	for _, row := range rows[1:] {
		name := cellValue(row, cols[speciesColumn])
		if name == "" {
			continue
		}
		list = append(list, domain.Species{
			Family: cellValue(row, cols[familyColumn]),
			Name:   name,
		})
	}
	domain.SortSpecies(list)

	r.logger.Debug("loaded plot inventory", "path", r.speciesPath, "species", len(list))
	return list, nil
}

// RedList reads the Red List spreadsheet into a name -> category lookup.
// Category cells are kept as-is; blank-category semantics are resolved at
// lookup time by domain.RedList.
func (r *Reader) RedList(ctx context.Context) (domain.RedList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := sheetRows(r.redListPath)
	if err != nil {
		return nil, err
	}
	cols, err := headerIndex(rows[0], taxonColumn, categoryColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.redListPath, err)
	}

	lookup := make(domain.RedList)
	for _, row := range rows[1:] {
		name := cellValue(row, cols[taxonColumn])
		if name == "" {
			continue
		}
		lookup[name] = cellValue(row, cols[categoryColumn])
	}

	r.logger.Debug("loaded red list", "path", r.redListPath, "taxa", len(lookup))
	return lookup, nil
}

// sheetRows opens a workbook and returns every row of its first sheet.
func sheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet %q has no header row", path, sheet)
	}
	return rows, nil
}

// headerIndex locates the wanted column headers in the header row. Header
// cells are trimmed before matching; column order does not matter.
func headerIndex(header []string, want ...string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(h)] = i
	}

	cols := make(map[string]int, len(want))
	for _, w := range want {
		i, ok := positions[w]
		if !ok {
			return nil, fmt.Errorf("missing column %q", w)
		}
		cols[w] = i
	}
	return cols, nil
}

// cellValue returns the trimmed cell at index i, tolerating short rows:
// excelize drops trailing empty cells from GetRows.
func cellValue(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
