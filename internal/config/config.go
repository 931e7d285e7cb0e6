// Package config holds the settings of one reconciliation run. Every path and
// constant the pipeline uses lives here so that tests can inject their own.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Keyword match policies.
const (
	// KeywordFirst returns the first category, in sorted order, owning a matching keyword.
	KeywordFirst = "first"
	// KeywordLongest returns the category of the longest matching keyword.
	KeywordLongest = "longest"
)

// History memory policies.
const (
	// HistoryFirst keeps the first ledger row seen for a description.
	HistoryFirst = "first"
	// HistoryLatest keeps the ledger row with the most recent date for a description.
	HistoryLatest = "latest"
)

// Default values mirror the layout of the Amex export and the workbook names
// the tracker has always used.
const (
	DefaultInputDir         = "./Input"
	DefaultExportFile       = "amex_test.xlsx"
	DefaultExportSheet      = "Details"
	DefaultExportSkipRows   = 6
	DefaultExportDateLayout = "1/2/2006"
	DefaultOrigin           = "Amex"
	DefaultMappingFile      = "./mapping_categories_test.xlsx"
	DefaultMappingSheet     = "Mappatura"
	DefaultLedgerFile       = "./expenses_tracker_test.xlsx"
	DefaultLedgerSheet      = "Master"
	DefaultCategory         = "Other"
	DefaultModelName        = "gemini-2.5-flash"
	DefaultLogLevel         = "info"
)

// DefaultFixedCategories are the categories treated as recurring fixed costs.
var DefaultFixedCategories = []string{
	"Rent",
	"Wi-Fi",
	"Phone Subscription",
	"Insurance",
	"Insurance Savings",
	"Gym Subscription",
	"Groceries",
}

// Config is the full set of settings for a run.
type Config struct {
	InputDir         string `yaml:"input_dir"`
	ExportFile       string `yaml:"export_file"`
	ExportSheet      string `yaml:"export_sheet"`
	ExportSkipRows   int    `yaml:"export_skip_rows"`
	ExportDateLayout string `yaml:"export_date_layout"`
	Origin           string `yaml:"origin"`

	MappingFile  string `yaml:"mapping_file"`
	MappingSheet string `yaml:"mapping_sheet"`

	LedgerFile  string `yaml:"ledger_file"`
	LedgerSheet string `yaml:"ledger_sheet"`

	FixedCategories []string `yaml:"fixed_categories"`
	DefaultCategory string   `yaml:"default_category"`

	KeywordPolicy string `yaml:"keyword_policy"`
	HistoryPolicy string `yaml:"history_policy"`

	Backup  BackupConfig  `yaml:"backup"`
	Export  ExportConfig  `yaml:"export"`
	GCP     GCPConfig     `yaml:"gcp"`
	Suggest SuggestConfig `yaml:"suggest"`

	LogLevel string `yaml:"log_level"`
}

// BackupConfig enables uploading the saved workbooks to Cloud Storage.
type BackupConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Enabled reports whether a backup bucket is configured.
func (b BackupConfig) Enabled() bool { return b.Bucket != "" }

// ExportConfig enables streaming the ledger into a BigQuery table.
type ExportConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

// Enabled reports whether a destination table is configured.
func (e ExportConfig) Enabled() bool {
	return e.Project != "" && e.Dataset != "" && e.Table != ""
}

// GCPConfig carries credentials shared by the Cloud Storage and BigQuery clients.
// An empty CredentialsFile means Application Default Credentials.
type GCPConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// SuggestConfig selects the model used by the suggest command.
type SuggestConfig struct {
	Model string `yaml:"model"`
}

// Default returns the configuration the tracker runs with when no file is given.
func Default() *Config {
	fixed := make([]string, len(DefaultFixedCategories))
	copy(fixed, DefaultFixedCategories)
	return &Config{
		InputDir:         DefaultInputDir,
		ExportFile:       DefaultExportFile,
		ExportSheet:      DefaultExportSheet,
		ExportSkipRows:   DefaultExportSkipRows,
		ExportDateLayout: DefaultExportDateLayout,
		Origin:           DefaultOrigin,
		MappingFile:      DefaultMappingFile,
		MappingSheet:     DefaultMappingSheet,
		LedgerFile:       DefaultLedgerFile,
		LedgerSheet:      DefaultLedgerSheet,
		FixedCategories:  fixed,
		DefaultCategory:  DefaultCategory,
		KeywordPolicy:    KeywordLongest,
		HistoryPolicy:    HistoryLatest,
		Suggest:          SuggestConfig{Model: DefaultModelName},
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults; a file that exists but cannot be parsed is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: reading %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("Load: parsing %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"input_dir", c.InputDir},
		{"export_file", c.ExportFile},
		{"export_sheet", c.ExportSheet},
		{"mapping_file", c.MappingFile},
		{"mapping_sheet", c.MappingSheet},
		{"ledger_file", c.LedgerFile},
		{"ledger_sheet", c.LedgerSheet},
		{"default_category", c.DefaultCategory},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if c.ExportSkipRows < 0 {
		return fmt.Errorf("export_skip_rows must not be negative, got %d", c.ExportSkipRows)
	}
	switch c.KeywordPolicy {
	case KeywordFirst, KeywordLongest:
	default:
		return fmt.Errorf("unknown keyword_policy %q", c.KeywordPolicy)
	}
	switch c.HistoryPolicy {
	case HistoryFirst, HistoryLatest:
	default:
		return fmt.Errorf("unknown history_policy %q", c.HistoryPolicy)
	}
	return nil
}

// FixedSet returns the fixed categories as a lookup set.
func (c *Config) FixedSet() map[string]bool {
	set := make(map[string]bool, len(c.FixedCategories))
	for _, name := range c.FixedCategories {
		set[name] = true
	}
	return set
}
