package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.ExportFile != "amex_test.xlsx" || cfg.ExportSheet != "Details" || cfg.ExportSkipRows != 6 {
		t.Errorf("unexpected export layout: %+v", cfg)
	}
	if cfg.MappingSheet != "Mappatura" || cfg.LedgerSheet != "Master" {
		t.Errorf("unexpected sheet names: %q %q", cfg.MappingSheet, cfg.LedgerSheet)
	}

	fixed := cfg.FixedSet()
	for _, name := range []string{"Rent", "Wi-Fi", "Phone Subscription", "Insurance", "Insurance Savings", "Gym Subscription", "Groceries"} {
		if !fixed[name] {
			t.Errorf("expected %q to be fixed", name)
		}
	}
	if fixed["Restaurants"] {
		t.Error("Restaurants should not be fixed")
	}

	// Mutating one default must not leak into the next.
	cfg.FixedCategories[0] = "Changed"
	if Default().FixedCategories[0] != "Rent" {
		t.Error("Default shares the fixed category slice")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.LedgerFile != DefaultLedgerFile {
			t.Errorf("LedgerFile = %q, want default", cfg.LedgerFile)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "nope.yaml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.InputDir != DefaultInputDir {
			t.Errorf("InputDir = %q, want default", cfg.InputDir)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(dir, "tracker.yaml")
		data := strings.Join([]string{
			"input_dir: gs://statements/amex",
			"ledger_file: /tmp/ledger.xlsx",
			"keyword_policy: first",
			"fixed_categories: [Rent]",
			"backup:",
			"  bucket: my-backups",
			"export:",
			"  project: p",
			"  dataset: finance",
			"  table: ledger",
		}, "\n")
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.InputDir != "gs://statements/amex" {
			t.Errorf("InputDir = %q", cfg.InputDir)
		}
		if cfg.KeywordPolicy != KeywordFirst {
			t.Errorf("KeywordPolicy = %q", cfg.KeywordPolicy)
		}
		if len(cfg.FixedCategories) != 1 || cfg.FixedCategories[0] != "Rent" {
			t.Errorf("FixedCategories = %v", cfg.FixedCategories)
		}
		if cfg.MappingSheet != DefaultMappingSheet {
			t.Errorf("unset keys should keep defaults, MappingSheet = %q", cfg.MappingSheet)
		}
		if !cfg.Backup.Enabled() || !cfg.Export.Enabled() {
			t.Errorf("backup/export should be enabled: %+v %+v", cfg.Backup, cfg.Export)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("input_dir: [unterminated"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid policy", func(t *testing.T) {
		path := filepath.Join(dir, "policy.yaml")
		if err := os.WriteFile(path, []byte("history_policy: random"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty ledger", func(c *Config) { c.LedgerFile = " " }, true},
		{"empty mapping sheet", func(c *Config) { c.MappingSheet = "" }, true},
		{"negative skip", func(c *Config) { c.ExportSkipRows = -1 }, true},
		{"zero skip", func(c *Config) { c.ExportSkipRows = 0 }, false},
		{"unknown keyword policy", func(c *Config) { c.KeywordPolicy = "shortest" }, true},
		{"empty default category", func(c *Config) { c.DefaultCategory = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
