// Package config provides configuration loading and structs for silabo.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool                    `yaml:"debug"`
	Input       InputConfig             `yaml:"input"`
	Output      OutputConfig            `yaml:"output"`
	Storage     StorageConfig           `yaml:"storage"`
	Pipeline    PipelineConfig          `yaml:"pipeline"`
	Server      ServerConfig            `yaml:"server"`
	Periods     map[string]PeriodConfig `yaml:"periods"`
	PeriodsFile string                  `yaml:"periods_file"`
}

// InputConfig holds the syllabus directories to scan or watch.
type InputConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to scan recursively; defaults to true when unset.
func (in *InputConfig) RecursiveOrDefault() bool {
	if in.Recursive != nil {
		return *in.Recursive
	}
	return true
}

// OutputConfig holds where course records and derived files are written.
type OutputConfig struct {
	JSONDir       string `yaml:"json_dir"`
	AggregatePath string `yaml:"aggregate_path"`
	CalendarPath  string `yaml:"calendar_path"`
}

// StorageConfig holds paths for the course database and search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// PipelineConfig holds batch processing settings.
type PipelineConfig struct {
	Workers       int   `yaml:"workers"`
	MaxFileSize   int64 `yaml:"max_file_size"`
	SkipUnchanged bool  `yaml:"skip_unchanged"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PeriodConfig holds the term boundaries of one academic period as ISO dates.
type PeriodConfig struct {
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`
}

// Dates parses the start and end dates.
func (p PeriodConfig) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, p.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", p.StartDate, err)
	}
	end, err := time.Parse(time.DateOnly, p.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", p.EndDate, err)
	}
	return start, end, nil
}

var periodKeyPattern = regexp.MustCompile(`^\d{4}-\d$`)

// Load reads and parses the config file at path, expands paths, merges the
// periods file, and applies defaults. Returns an error if the file cannot be
// read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Output.JSONDir = expandPath(cfg.Output.JSONDir, configDir)
	if cfg.Output.AggregatePath != "" {
		cfg.Output.AggregatePath = expandPath(cfg.Output.AggregatePath, configDir)
	}
	if cfg.Output.CalendarPath != "" {
		cfg.Output.CalendarPath = expandPath(cfg.Output.CalendarPath, configDir)
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Input.Directories {
		cfg.Input.Directories[i] = expandPath(cfg.Input.Directories[i], configDir)
	}

	if cfg.PeriodsFile != "" {
		cfg.PeriodsFile = expandPath(cfg.PeriodsFile, configDir)
		if err := mergePeriodsFile(&cfg, cfg.PeriodsFile); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// mergePeriodsFile adds the periods of a JSON file of the form
// {"2025-2": {"start_date": "2025-08-18", "end_date": "2025-12-01"}}.
// Periods already present in cfg are kept.
func mergePeriodsFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read periods file: %w", err)
	}
	var periods map[string]PeriodConfig
	if err := json.Unmarshal(data, &periods); err != nil {
		return fmt.Errorf("failed to parse periods file: %w", err)
	}
	if cfg.Periods == nil {
		cfg.Periods = make(map[string]PeriodConfig, len(periods))
	}
	for k, v := range periods {
		if _, ok := cfg.Periods[k]; !ok {
			cfg.Periods[k] = v
		}
	}
	return nil
}

// Validate checks the period table: keys must look like "YYYY-T" and dates must
// be ISO calendar dates. The end date may precede the start date; the two are
// independent anchors.
func (c *Config) Validate() error {
	for key, p := range c.Periods {
		if !periodKeyPattern.MatchString(key) {
			return fmt.Errorf("invalid period key %q: want YYYY-T", key)
		}
		if _, _, err := p.Dates(); err != nil {
			return fmt.Errorf("period %s: %w", key, err)
		}
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
