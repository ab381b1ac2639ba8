package worldclim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/terrabiota/plotclim/internal/observability"
	"github.com/terrabiota/plotclim/internal/raster"
)

// Variable describes one WorldClim layer set.
type Variable struct {
	// Name is the short layer-set name used in archive and band file names.
	Name string

	// Scale converts stored cell integers to natural units.
	Scale float64
}

// The two layer sets the pipeline samples. Temperature grids store tenths
// of a degree Celsius; precipitation is millimetres.
var (
	Temperature   = Variable{Name: "tmean", Scale: 0.1}
	Precipitation = Variable{Name: "prec", Scale: 1}
)

// Client fetches WorldClim layer archives over HTTP with a local disk
// cache. Archives follow the provider's "<variable>_<resolution>_bil.zip"
// naming and hold one .bil/.hdr pair per month.
type Client struct {
	baseURL    string
	resolution string
	cacheDir   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a climate layer client. Downloads are throttled to rps
// requests per second and bounded by timeout each.
func NewClient(baseURL, resolution, cacheDir string, timeout time.Duration, rps float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		resolution: resolution,
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		metrics:    metrics,
	}
}

// Stacks makes both layer sets available, fetching the two archives
// concurrently. The returned stacks are read-only and safe to share.
func (c *Client) Stacks(ctx context.Context) (temperature, precipitation *raster.Stack, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		temperature, err = c.Stack(ctx, Temperature)
		return err
	})
	g.Go(func() error {
		var err error
		precipitation, err = c.Stack(ctx, Precipitation)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return temperature, precipitation, nil
}

// Stack downloads or reuses the archive for v at the configured resolution
// and decodes its twelve monthly bands.
func (c *Client) Stack(ctx context.Context, v Variable) (*raster.Stack, error) {
	start := time.Now()
	path, source, err := c.archive(ctx, v)
	if err != nil {
		return nil, err
	}
	c.metrics.LayerFetches.WithLabelValues(v.Name, source).Inc()
	c.metrics.FetchDuration.WithLabelValues(v.Name).Observe(time.Since(start).Seconds())

	stack, err := decodeStack(path, v)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	c.logger.Info("climate layers ready",
		"variable", v.Name,
		"resolution", c.resolution,
		"source", source,
		"rows", stack.Grids[0].Header.Rows,
		"cols", stack.Grids[0].Header.Cols,
	)
	return stack, nil
}

// archive returns the local path of v's layer archive, downloading it into
// the cache dir unless a previous run already left it there.
func (c *Client) archive(ctx context.Context, v Variable) (path, source string, err error) {
	name := fmt.Sprintf("%s_%s_bil.zip", v.Name, c.resolution)
	path = filepath.Join(c.cacheDir, name)

	if _, err := os.Stat(path); err == nil {
		return path, "cache", nil
	}
	if err := c.download(ctx, name, path); err != nil {
		return "", "", err
	}
	return path, "download", nil
}

func (c *Client) download(ctx context.Context, name, dest string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + "/" + name
	c.logger.Info("downloading climate layers", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("climate provider error: status %d: %s", resp.StatusCode, body)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// A partial download must never be mistaken for a cached archive, so
	// write to a temp name and rename into place once complete.
	tmp, err := os.CreateTemp(filepath.Dir(dest), name+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), dest)
}

// decodeStack reads the twelve "<variable><month>.bil" bands and their
// sidecars out of a layer archive.
func decodeStack(path string, v Variable) (*raster.Stack, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	// Index members by base name; some archives nest the bands in a
	// directory.
	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[strings.ToLower(filepath.Base(f.Name))] = f
	}

	stack := &raster.Stack{Variable: v.Name, Scale: v.Scale}
	for month := 1; month <= raster.Months; month++ {
		base := fmt.Sprintf("%s%d", v.Name, month)

		hdr, err := readHeader(members, base+".hdr")
		if err != nil {
			return nil, err
		}
		grid, err := readBand(members, base+".bil", hdr)
		if err != nil {
			return nil, err
		}
		stack.Grids[month-1] = grid
	}
	return stack, nil
}

func readHeader(members map[string]*zip.File, name string) (raster.Header, error) {
	rc, err := openMember(members, name)
	if err != nil {
		return raster.Header{}, err
	}
	defer rc.Close()

	hdr, err := raster.ParseHeader(rc)
	if err != nil {
		return raster.Header{}, fmt.Errorf("%s: %w", name, err)
	}
	return hdr, nil
}

func readBand(members map[string]*zip.File, name string, hdr raster.Header) (*raster.Grid, error) {
	rc, err := openMember(members, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	grid, err := raster.ReadGrid(hdr, rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return grid, nil
}

func openMember(members map[string]*zip.File, name string) (io.ReadCloser, error) {
	f, ok := members[name]
	if !ok {
		return nil, fmt.Errorf("archive missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}
