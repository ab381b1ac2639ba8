package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the optional config file is looked up. The pipeline
// is a one-shot batch job with no flags or environment variables; everything
// is driven by built-in defaults plus this file.
const DefaultPath = "plotclim.toml"

// Resolutions lists the spatial resolutions the climate provider publishes.
var Resolutions = []string{"10m", "5m", "2-5m", "30s"}

// Config holds all settings for a pipeline run.
type Config struct {
	Data    DataConfig    `toml:"data"`
	Climate ClimateConfig `toml:"climate"`
	Output  OutputConfig  `toml:"output"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// DataConfig locates the three input datasets under one directory.
type DataConfig struct {
	Dir               string `toml:"dir"`
	SpeciesFile       string `toml:"species_file"`
	RedListFile       string `toml:"red_list_file"`
	OccurrenceArchive string `toml:"occurrence_archive"`
}

// ClimateConfig describes the gridded climate provider.
type ClimateConfig struct {
	BaseURL    string `toml:"base_url"`
	Resolution string `toml:"resolution"`
	CacheDir   string `toml:"cache_dir"`

	// RateLimit throttles layer downloads, in requests per second.
	RateLimit float64 `toml:"rate_limit"`

	// TimeoutSeconds bounds a single layer download. Archives are tens to
	// hundreds of megabytes, so this is generous by default.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// OutputConfig locates the summary file and the per-species directory.
type OutputConfig struct {
	Dir         string `toml:"dir"`
	SummaryFile string `toml:"summary_file"`
	SpeciesDir  string `toml:"species_dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls the optional end-of-run push to a Prometheus
// Pushgateway. An empty URL disables the push.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			Dir:               "data",
			SpeciesFile:       "especies_parcelas.xlsx",
			RedListFile:       "lista_roja.xlsx",
			OccurrenceArchive: "bst_geocoded.zip",
		},
		Climate: ClimateConfig{
			BaseURL:        "https://biogeo.ucdavis.edu/data/climate/worldclim/1_4/grid/cur",
			Resolution:     "10m",
			CacheDir:       filepath.Join("data", "worldclim"),
			RateLimit:      1.0,
			TimeoutSeconds: 900,
		},
		Output: OutputConfig{
			Dir:         "out",
			SummaryFile: "resumen_especies.csv",
			SpeciesDir:  "especies",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "plotclim",
		},
	}
}

// Load reads a TOML config file and validates the result. If the file does
// not exist, built-in defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Data.Dir == "":
		return errors.New("data.dir is required")
	case c.Data.SpeciesFile == "":
		return errors.New("data.species_file is required")
	case c.Data.RedListFile == "":
		return errors.New("data.red_list_file is required")
	case c.Data.OccurrenceArchive == "":
		return errors.New("data.occurrence_archive is required")
	case c.Climate.BaseURL == "":
		return errors.New("climate.base_url is required")
	case c.Climate.CacheDir == "":
		return errors.New("climate.cache_dir is required")
	case c.Climate.RateLimit <= 0:
		return errors.New("climate.rate_limit must be positive")
	case c.Climate.TimeoutSeconds <= 0:
		return errors.New("climate.timeout_seconds must be positive")
	case c.Output.Dir == "":
		return errors.New("output.dir is required")
	case c.Output.SummaryFile == "":
		return errors.New("output.summary_file is required")
	case c.Output.SpeciesDir == "":
		return errors.New("output.species_dir is required")
	}

	for _, r := range Resolutions {
		if c.Climate.Resolution == r {
			return nil
		}
	}
	return fmt.Errorf("climate.resolution %q is not one of %v", c.Climate.Resolution, Resolutions)
}

// SpeciesPath is the plot inventory spreadsheet location.
func (c *Config) SpeciesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.SpeciesFile)
}

// RedListPath is the Red List spreadsheet location.
func (c *Config) RedListPath() string {
	return filepath.Join(c.Data.Dir, c.Data.RedListFile)
}

// OccurrencePath is the occurrence archive location.
func (c *Config) OccurrencePath() string {
	return filepath.Join(c.Data.Dir, c.Data.OccurrenceArchive)
}

// SummaryPath is the final summary file location.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.Output.Dir, c.Output.SummaryFile)
}

// SpeciesDirPath is the directory receiving one file per species.
func (c *Config) SpeciesDirPath() string {
	return filepath.Join(c.Output.Dir, c.Output.SpeciesDir)
}

// DownloadTimeout is the per-layer download timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Climate.TimeoutSeconds) * time.Second
}
