//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/terrabiota/plotclim/internal/adapter/csvfile"
	"github.com/terrabiota/plotclim/internal/adapter/occurrence"
	"github.com/terrabiota/plotclim/internal/adapter/worldclim"
	"github.com/terrabiota/plotclim/internal/adapter/xlsx"
	"github.com/terrabiota/plotclim/internal/config"
	"github.com/terrabiota/plotclim/internal/observability"
	"github.com/terrabiota/plotclim/internal/pipeline"
	"github.com/terrabiota/plotclim/internal/raster"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func writeOccurrenceArchive(t *testing.T, path, contents string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("bst_geocoded.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

// climateArchive builds a twelve-band layer archive over a 1x2 grid spanning
// lon [-85,-83) lat (9.5,10.5], every month repeating the same two cells.
func climateArchive(t *testing.T, variable string, cells []int16) []byte {
	t.Helper()
	hdr := raster.Header{
		Rows: 1, Cols: 2,
		NoData:       raster.DefaultNoData,
		LittleEndian: true,
		ULX:          -84.5,
		ULY:          10.0,
		XDim:         1,
		YDim:         1,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for month := 1; month <= raster.Months; month++ {
		data, err := raster.EncodeGrid(hdr, cells)
		require.NoError(t, err)
		w, err := zw.Create(fmt.Sprintf("%s%d.bil", variable, month))
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		h, err := zw.Create(fmt.Sprintf("%s%d.hdr", variable, month))
		require.NoError(t, err)
		_, err = h.Write(raster.EncodeHeader(hdr))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// setupRun writes a complete input set and starts a stand-in climate
// provider. One species has two occurrences, one on a cell that is nodata
// for precipitation only; a second species has none; a third taxon appears
// in the archive but not in the inventory.
func setupRun(t *testing.T) (*config.Config, *httptest.Server) {
	t.Helper()
	dataDir := t.TempDir()

	writeWorkbook(t, filepath.Join(dataDir, "especies_parcelas.xlsx"), [][]string{
		{"Familia", "Accepted_name"},
		{"Bignoniaceae", "Tabebuia rosea"},
		{"Zygophyllaceae", "Guaiacum sanctum"},
	})
	writeWorkbook(t, filepath.Join(dataDir, "lista_roja.xlsx"), [][]string{
		{"Check_TaxonName", "IUCN_Red_List"},
		{"Tabebuia rosea", "VU"},
		{"Pachira quinata", "EN"},
	})
	writeOccurrenceArchive(t, filepath.Join(dataDir, "bst_geocoded.zip"),
		"sci_name,longitude,latitude\n"+
			"Tabebuia rosea,-84.6,9.9\n"+
			"Tabebuia rosea,-83.9,10.2\n"+
			"Cochlospermum vitifolium,-84.7,9.8\n")

	tmean := climateArchive(t, "tmean", []int16{182, 190})
	prec := climateArchive(t, "prec", []int16{2100, raster.DefaultNoData})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tmean_10m_bil.zip":
			w.Write(tmean)
		case "/prec_10m_bil.zip":
			w.Write(prec)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cfg := config.Defaults()
	cfg.Data.Dir = dataDir
	cfg.Climate.BaseURL = server.URL
	cfg.Climate.CacheDir = t.TempDir()
	cfg.Climate.RateLimit = 100
	cfg.Output.Dir = t.TempDir()
	return cfg, server
}

// newPipeline wires real adapters the way cmd/plotclim does.
func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	workbooks := xlsx.NewReader(cfg.SpeciesPath(), cfg.RedListPath(), logger)
	archive := occurrence.NewReader(cfg.OccurrencePath(), logger)
	climate := worldclim.NewClient(
		cfg.Climate.BaseURL,
		cfg.Climate.Resolution,
		cfg.Climate.CacheDir,
		cfg.DownloadTimeout(),
		cfg.Climate.RateLimit,
		logger,
		metrics,
	)
	results := csvfile.NewWriter(cfg.SummaryPath(), cfg.SpeciesDirPath(), logger)
	return pipeline.New(workbooks, workbooks, archive, climate, results, logger, metrics)
}

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg, _ := setupRun(t)

	require.NoError(t, newPipeline(cfg).Run(context.Background()))

	summary := readRecords(t, cfg.SummaryPath())
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"familia", "especie", "categoria_listaroja", "temperatura_promedio_anual", "precipitacion_promedio_anual"}, summary[0])

	// No occurrences, no red list entry: everything after the name is empty.
	assert.Equal(t, []string{"Zygophyllaceae", "Guaiacum sanctum", "", "", ""}, summary[1])

	// Annual temperatures 18.2 and 19.0 average to 18.6; the nodata
	// precipitation record drops out of the mean instead of pulling it down.
	tabebuia := summary[2]
	assert.Equal(t, "Bignoniaceae", tabebuia[0])
	assert.Equal(t, "Tabebuia rosea", tabebuia[1])
	assert.Equal(t, "VU", tabebuia[2])
	temp, err := strconv.ParseFloat(tabebuia[3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 18.6, temp, 1e-9)
	assert.Equal(t, "2100", tabebuia[4])

	rows := readRecords(t, filepath.Join(cfg.SpeciesDirPath(), "Tabebuia_rosea.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"familia", "especie", "x", "y", "temperatura_promedio_anual", "precipitacion_promedio_anual"}, rows[0])

	first, second := rows[1], rows[2]
	assert.Equal(t, []string{"-84.6", "9.9"}, first[2:4])
	tempA, err := strconv.ParseFloat(first[4], 64)
	require.NoError(t, err)
	assert.InDelta(t, 18.2, tempA, 1e-9)
	assert.Equal(t, "2100", first[5])

	assert.Equal(t, []string{"-83.9", "10.2"}, second[2:4])
	tempB, err := strconv.ParseFloat(second[4], 64)
	require.NoError(t, err)
	assert.InDelta(t, 19.0, tempB, 1e-9)
	assert.Equal(t, "", second[5])

	empty := readRecords(t, filepath.Join(cfg.SpeciesDirPath(), "Guaiacum_sanctum.csv"))
	require.Len(t, empty, 1)

	// The taxon absent from the inventory leaves no file behind.
	entries, err := os.ReadDir(cfg.SpeciesDirPath())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPipelineEndToEnd_ClimateProviderDown(t *testing.T) {
	cfg, server := setupRun(t)
	server.Close()

	err := newPipeline(cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch climate")

	_, statErr := os.Stat(cfg.SummaryPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipelineEndToEnd_SecondRunFromCache(t *testing.T) {
	cfg, server := setupRun(t)
	require.NoError(t, newPipeline(cfg).Run(context.Background()))
	server.Close()

	// Same cache, fresh output: the run must not touch the network again.
	cfg.Output.Dir = t.TempDir()
	require.NoError(t, newPipeline(cfg).Run(context.Background()))

	summary := readRecords(t, cfg.SummaryPath())
	assert.Len(t, summary, 3)
}
