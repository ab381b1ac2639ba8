package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/terrabiota/plotclim/internal/domain"
)

var (
	speciesHeader = []string{"familia", "especie", "x", "y", "temperatura_promedio_anual", "precipitacion_promedio_anual"}
	summaryHeader = []string{"familia", "especie", "categoria_listaroja", "temperatura_promedio_anual", "precipitacion_promedio_anual"}
)

// Writer persists pipeline results as CSV files under the output directory.
// It implements pipeline.ResultWriter.
type Writer struct {
	summaryPath string
	speciesDir  string
	logger      *slog.Logger
}

// NewWriter creates a writer that places the summary at summaryPath and one
// file per species under speciesDir.
func NewWriter(summaryPath, speciesDir string, logger *slog.Logger) *Writer {
	return &Writer{summaryPath: summaryPath, speciesDir: speciesDir, logger: logger}
}

// WriteSpeciesFile writes the occurrence rows of a single species. A species
// with no occurrences still gets a file, holding just the header.
func (w *Writer) WriteSpeciesFile(ctx context.Context, sp domain.Species, occurrences []domain.Occurrence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.speciesDir, 0o755); err != nil {
		return fmt.Errorf("create species dir: %w", err)
	}
	records := make([][]string, 0, len(occurrences)+1)
	records = append(records, speciesHeader)
	for i := range occurrences {
		records = append(records, speciesRecord(sp, occurrences[i]))
	}
	path := filepath.Join(w.speciesDir, domain.SpeciesFileName(sp.Name))
	if err := writeFile(path, records); err != nil {
		return err
	}
	w.logger.Debug("wrote species file", "path", path, "rows", len(occurrences))
	return nil
}

// WriteSummary writes the one-row-per-species summary table.
func (w *Writer) WriteSummary(ctx context.Context, rows []domain.SpeciesSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.summaryPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, summaryHeader)
	for i := range rows {
		records = append(records, summaryRecord(rows[i]))
	}
	if err := writeFile(w.summaryPath, records); err != nil {
		return err
	}
	w.logger.Info("wrote summary", "path", w.summaryPath, "rows", len(rows))
	return nil
}

func writeFile(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// speciesRecord renders one occurrence of a species as a CSV record.
func speciesRecord(sp domain.Species, occ domain.Occurrence) []string {
	return []string{
		sp.Family,
		sp.Name,
		floatField(occ.X),
		floatField(occ.Y),
		optionalField(occ.AnnualMeanTemperature),
		optionalField(occ.AnnualMeanPrecipitation),
	}
}

// summaryRecord renders one summary row as a CSV record.
func summaryRecord(row domain.SpeciesSummary) []string {
	return []string{
		row.Family,
		row.Species,
		textField(row.Category),
		optionalField(row.MeanAnnualTemperature),
		optionalField(row.MeanAnnualPrecipitation),
	}
}

// floatField uses the shortest decimal form that round-trips, so whole
// millimetre counts stay integral ("2100") and means keep only the digits
// they need ("18.6").
func floatField(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optionalField maps a missing value to the empty string.
func optionalField(v *float64) string {
	if v == nil {
		return ""
	}
	return floatField(*v)
}

func textField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
