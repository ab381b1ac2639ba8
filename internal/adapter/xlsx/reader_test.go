package xlsx

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/terrabiota/plotclim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeWorkbook writes rows to the first sheet of a new workbook at path.
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

func TestReaderSpecies(t *testing.T) {
	ctx := context.Background()

	t.Run("renames, trims, and sorts by species", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "especies.xlsx")
		writeWorkbook(t, path, [][]string{
			{"Plot", "Familia", "Accepted_name"},
			{"P01", "Malvaceae", "Ceiba pentandra"},
			{"P02", "Fagaceae", " Quercus costaricensis "},
			{"P01", "Fabaceae", "Albizia adinocephala"},
		})

		list, err := NewReader(path, "", testLogger()).Species(ctx)

		require.NoError(t, err)
		expected := []domain.Species{
			{Family: "Fabaceae", Name: "Albizia adinocephala"},
			{Family: "Malvaceae", Name: "Ceiba pentandra"},
			{Family: "Fagaceae", Name: "Quercus costaricensis"},
		}
		if diff := cmp.Diff(expected, list); diff != "" {
			t.Fatalf("species list mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("blank taxon rows skipped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "especies.xlsx")
		writeWorkbook(t, path, [][]string{
			{"Familia", "Accepted_name"},
			{"Fagaceae", "Quercus costaricensis"},
			{"Fabaceae", ""},
		})

		list, err := NewReader(path, "", testLogger()).Species(ctx)

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Quercus costaricensis", list[0].Name)
	})

	t.Run("missing column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "especies.xlsx")
		writeWorkbook(t, path, [][]string{
			{"Familia", "Nombre"},
			{"Fagaceae", "Quercus costaricensis"},
		})

		_, err := NewReader(path, "", testLogger()).Species(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing column "Accepted_name"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewReader(filepath.Join(t.TempDir(), "absent.xlsx"), "", testLogger()).Species(ctx)
		require.Error(t, err)
	})
}

func TestReaderRedList(t *testing.T) {
	ctx := context.Background()

	t.Run("builds lookup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lista_roja.xlsx")
		writeWorkbook(t, path, [][]string{
			{"IUCN_Red_List", "Check_TaxonName"}, // column order does not matter
			{"VU", "Quercus costaricensis"},
			{"EN", "Cedrela odorata"},
			{"", "Handroanthus guayacan"},
		})

		lookup, err := NewReader("", path, testLogger()).RedList(ctx)

		require.NoError(t, err)
		require.Len(t, lookup, 3)
		assert.Equal(t, "VU", lookup["Quercus costaricensis"])
		assert.Equal(t, "EN", lookup["Cedrela odorata"])

		category := lookup.Category("Handroanthus guayacan")
		assert.Nil(t, category, "blank category surfaces as missing")
	})

	t.Run("missing column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lista_roja.xlsx")
		writeWorkbook(t, path, [][]string{
			{"Check_TaxonName"},
			{"Quercus costaricensis"},
		})

		_, err := NewReader("", path, testLogger()).RedList(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing column "IUCN_Red_List"`)
	})
}
