// Command validate checks a finished run's outputs against its inputs: the
// summary and the per-species files are reloaded and verified for shape,
// ordering, join correctness, recomputed means, and the empty-string missing
// value policy. It reads the same config file as the pipeline, so it always
// checks whatever the last run produced.
//
// Usage:
//
//	go run ./cmd/validate
//	go run ./cmd/validate -config custom.toml
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/terrabiota/plotclim/internal/adapter/occurrence"
	"github.com/terrabiota/plotclim/internal/adapter/xlsx"
	"github.com/terrabiota/plotclim/internal/config"
	"github.com/terrabiota/plotclim/internal/domain"
)

var (
	summaryHeader = []string{"familia", "especie", "categoria_listaroja", "temperatura_promedio_anual", "precipitacion_promedio_anual"}
	speciesHeader = []string{"familia", "especie", "x", "y", "temperatura_promedio_anual", "precipitacion_promedio_anual"}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "pipeline config file")
	flag.Parse()

	if code := run(*cfgPath); code != 0 {
		os.Exit(code)
	}
}

func run(cfgPath string) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	fmt.Println("=== Plot Climate Output Validation ===")
	fmt.Println()

	// Inputs come through the same adapters the pipeline uses.
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	workbooks := xlsx.NewReader(cfg.SpeciesPath(), cfg.RedListPath(), logger)
	species, err := workbooks.Species(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load species inventory: %v\n", err)
		return 1
	}
	domain.SortSpecies(species)

	redList, err := workbooks.RedList(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load red list: %v\n", err)
		return 1
	}

	occurrences, err := occurrence.NewReader(cfg.OccurrencePath(), logger).Occurrences(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load occurrences: %v\n", err)
		return 1
	}

	summaryTable, err := loadTable(cfg.SummaryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
		return 1
	}

	speciesTables, loadErrs := loadSpeciesTables(cfg.SpeciesDirPath(), species)

	phases := []*phase{
		validateSummaryShape(summaryTable, species),
		validateSpeciesFiles(speciesTables, loadErrs, species, occurrences, cfg.SpeciesDirPath()),
		validateConsistency(summaryTable, speciesTables, redList),
		validateMissingPolicy(summaryTable, speciesTables, species),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d species, %d red list taxa, %d occurrences, %d summary rows, %d species files\n",
		len(species), len(redList), len(occurrences), max(len(summaryTable)-1, 0), len(speciesTables))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Ragged rows are the validator's to report, not a load failure.
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func loadSpeciesTables(dir string, species []domain.Species) (map[string][][]string, []string) {
	tables := make(map[string][][]string, len(species))
	var errs []string
	for _, sp := range species {
		path := filepath.Join(dir, domain.SpeciesFileName(sp.Name))
		table, err := loadTable(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", sp.Name, err))
			continue
		}
		tables[sp.Name] = table
	}
	return tables, errs
}

// ── Phase 1: Summary Shape ──
// The summary has the exact header and one row per inventory species, in
// ascending especie order with the inventory's familia.

func validateSummaryShape(table [][]string, species []domain.Species) *phase {
	p := &phase{name: "Phase 1: Summary Shape (header and order)"}

	if len(table) == 0 {
		p.errorf("summary is empty")
		return p
	}
	if !headerEq(table[0], summaryHeader) {
		p.errorf("summary header is %v, want %v", table[0], summaryHeader)
	}

	rows := table[1:]
	if len(rows) != len(species) {
		p.errorf("summary has %d rows for %d inventory species", len(rows), len(species))
	}
	for i := 0; i < min(len(rows), len(species)); i++ {
		if len(rows[i]) < 2 {
			p.errorf("summary row %d: only %d fields", i+2, len(rows[i]))
			continue
		}
		if rows[i][1] != species[i].Name {
			p.errorf("summary row %d: especie %q, expected %q in sorted order", i+2, rows[i][1], species[i].Name)
		}
		if rows[i][0] != species[i].Family {
			p.errorf("summary row %d: familia %q, inventory says %q", i+2, rows[i][0], species[i].Family)
		}
	}
	return p
}

// ── Phase 2: Species Files ──
// Every inventory species has exactly one file whose rows mirror that
// species' occurrence records, and nothing else lives in the directory.

func validateSpeciesFiles(tables map[string][][]string, loadErrs []string, species []domain.Species, occurrences []domain.Occurrence, dir string) *phase {
	p := &phase{name: "Phase 2: Species Files (one per taxon)"}
	p.errors = append(p.errors, loadErrs...)

	for _, sp := range species {
		table, ok := tables[sp.Name]
		if !ok {
			continue // load error already recorded
		}
		file := domain.SpeciesFileName(sp.Name)
		if len(table) == 0 {
			p.errorf("%s: empty file, expected at least a header", file)
			continue
		}
		if !headerEq(table[0], speciesHeader) {
			p.errorf("%s: header is %v, want %v", file, table[0], speciesHeader)
		}

		rows := table[1:]
		matches := domain.FilterBySpecies(occurrences, sp.Name)
		if len(rows) != len(matches) {
			p.errorf("%s: %d rows, archive holds %d occurrences of this species", file, len(rows), len(matches))
		}

		wantCoords := map[string]int{}
		for _, occ := range matches {
			wantCoords[coordKey(occ.Longitude, occ.Latitude)]++
		}
		for i, row := range rows {
			if len(row) != len(speciesHeader) {
				p.errorf("%s row %d: %d fields", file, i+2, len(row))
				continue
			}
			if row[0] != sp.Family {
				p.errorf("%s row %d: familia %q, inventory says %q", file, i+2, row[0], sp.Family)
			}
			if row[1] != sp.Name {
				p.errorf("%s row %d: especie %q", file, i+2, row[1])
			}
			key := row[2] + "," + row[3]
			if wantCoords[key] == 0 {
				p.errorf("%s row %d: point (%s) is not in the archive for this species", file, i+2, key)
			} else {
				wantCoords[key]--
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.errorf("read %s: %v", dir, err)
		return p
	}
	expected := map[string]bool{}
	for _, sp := range species {
		expected[domain.SpeciesFileName(sp.Name)] = true
	}
	for _, e := range entries {
		if !expected[e.Name()] {
			p.errorf("unexpected file %s", e.Name())
		}
	}
	return p
}

// ── Phase 3: Summary Consistency ──
// Categories re-join against the Red List and means recompute from the
// per-species files.

func validateConsistency(summary [][]string, tables map[string][][]string, redList domain.RedList) *phase {
	p := &phase{name: "Phase 3: Summary Consistency (joins and means)"}
	if len(summary) == 0 {
		return p
	}

	for i, row := range summary[1:] {
		if len(row) != len(summaryHeader) {
			p.errorf("summary row %d: %d fields", i+2, len(row))
			continue
		}
		name := row[1]

		want := ""
		if c := redList.Category(name); c != nil {
			want = *c
		}
		if row[2] != want {
			p.errorf("summary row %d (%s): categoria %q, red list says %q", i+2, name, row[2], want)
		}

		table, ok := tables[name]
		if !ok || len(table) == 0 {
			continue
		}
		checkMean(p, i+2, name, "temperatura", row[3], table, 4)
		checkMean(p, i+2, name, "precipitacion", row[4], table, 5)
	}
	return p
}

// checkMean recomputes the mean of one numeric column of a species file and
// compares it with the summary cell. Empty cells are missing values and stay
// out of the mean; a species with no values at all must have an empty
// summary cell.
func checkMean(p *phase, line int, name, column, got string, table [][]string, idx int) {
	var sum float64
	var n int
	for _, row := range table[1:] {
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return // non-numeric cells are the policy phase's finding
		}
		sum += v
		n++
	}

	if n == 0 {
		if got != "" {
			p.errorf("summary row %d (%s): %s is %q but the species file has no values", line, name, column, got)
		}
		return
	}
	want := sum / float64(n)
	v, err := strconv.ParseFloat(got, 64)
	if err != nil || !floatEq(v, want) {
		p.errorf("summary row %d (%s): %s is %q, species file mean is %g", line, name, column, got, want)
	}
}

// ── Phase 4: Missing Values ──
// Missing data is an empty string, never a sentinel token, and every
// non-empty numeric cell parses.

var missingTokens = map[string]bool{
	"NA": true, "N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true, "-9999": true,
}

func validateMissingPolicy(summary [][]string, tables map[string][][]string, species []domain.Species) *phase {
	p := &phase{name: "Phase 4: Missing Values (empty string only)"}

	checkNumericColumns(p, "summary", summary, []int{3, 4})
	for i, row := range skipHeader(summary) {
		if len(row) > 2 && missingTokens[row[2]] {
			p.errorf("summary row %d: categoria written as %q", i+2, row[2])
		}
	}

	// Deterministic error order regardless of map iteration.
	for _, sp := range species {
		table, ok := tables[sp.Name]
		if !ok {
			continue
		}
		checkNumericColumns(p, domain.SpeciesFileName(sp.Name), table, []int{2, 3, 4, 5})
	}
	return p
}

func checkNumericColumns(p *phase, file string, table [][]string, cols []int) {
	for i, row := range skipHeader(table) {
		for _, c := range cols {
			if c >= len(row) {
				continue
			}
			v := row[c]
			if v == "" {
				continue
			}
			if missingTokens[v] {
				p.errorf("%s row %d col %d: missing value written as %q", file, i+2, c+1, v)
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				p.errorf("%s row %d col %d: %q is not numeric", file, i+2, c+1, v)
			}
		}
	}
}

// ── Helpers ──

func skipHeader(table [][]string) [][]string {
	if len(table) == 0 {
		return nil
	}
	return table[1:]
}

func headerEq(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func coordKey(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
