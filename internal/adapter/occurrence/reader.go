package occurrence

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/terrabiota/plotclim/internal/domain"
)

// Column headers required in the archived occurrence table.
const (
	speciesColumn   = "sci_name"
	longitudeColumn = "longitude"
	latitudeColumn  = "latitude"
)

// Reader extracts the occurrence archive and parses its tabular member into
// domain records.
type Reader struct {
	archivePath string
	logger      *slog.Logger
}

func NewReader(archivePath string, logger *slog.Logger) *Reader {
	return &Reader{archivePath: archivePath, logger: logger}
}

// Occurrences opens the archive, extracts its tabular member to a run-scoped
// scratch directory and parses it. Records get sequential IDs from 1 in file
// order. Any read or parse failure is fatal; there is no partial result. The
// scratch directory is removed on a best-effort basis.
func (r *Reader) Occurrences(ctx context.Context) ([]domain.Occurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archive, err := zip.OpenReader(r.archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", r.archivePath, err)
	}
	defer archive.Close()

	member, err := tabularMember(&archive.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.archivePath, err)
	}

	scratch := filepath.Join(os.TempDir(), "plotclim-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	path, err := extract(member, scratch)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", member.Name, err)
	}
	r.logger.Debug("extracted occurrence table", "member", member.Name, "scratch", scratch)

	occurrences, err := readTable(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", member.Name, err)
	}

	r.logger.Debug("loaded occurrences", "archive", r.archivePath, "records", len(occurrences))
	return occurrences, nil
}

// tabularMember finds the point table inside the archive: the first
// non-directory .csv or .txt entry.
func tabularMember(zr *zip.Reader) (*zip.File, error) {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".csv", ".txt":
			return f, nil
		}
	}
	return nil, errors.New("archive has no .csv or .txt member")
}

func extract(member *zip.File, dir string) (string, error) {
	src, err := member.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// Base() guards against zip-slip member names.
	path := filepath.Join(dir, filepath.Base(member.Name))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func readTable(path string) ([]domain.Occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Spreadsheet exports often carry a UTF-8 BOM on the first cell.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{speciesColumn, longitudeColumn, latitudeColumn} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var occurrences []domain.Occurrence
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		lon, err := strconv.ParseFloat(get(row, colIdx, longitudeColumn), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", line, err)
		}
		lat, err := strconv.ParseFloat(get(row, colIdx, latitudeColumn), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", line, err)
		}

		occurrences = append(occurrences, domain.Occurrence{
			ID:        len(occurrences) + 1,
			Species:   get(row, colIdx, speciesColumn),
			Longitude: lon,
			Latitude:  lat,
		})
	}
	return occurrences, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
