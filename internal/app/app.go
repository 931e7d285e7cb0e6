// Package app wires configuration into the clients and stores a command needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/gcsuploader"
	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/importer"
	"github.com/dvloznov/expense-tracker/internal/pipeline"
)

// Overrides replace configuration values from the command line. Empty
// fields keep the configured value.
type Overrides struct {
	InputDir    string
	MappingFile string
	LedgerFile  string
	LogLevel    string
}

// LoadConfig loads the configuration at path and applies o.
func LoadConfig(path string, o Overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&cfg.InputDir, o.InputDir},
		{&cfg.MappingFile, o.MappingFile},
		{&cfg.LedgerFile, o.LedgerFile},
		{&cfg.LogLevel, o.LogLevel},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("LoadConfig: %w", err)
	}
	return cfg, nil
}

// Options switch off optional steps for a single invocation.
type Options struct {
	NoBackup bool
	NoExport bool
}

// Runtime holds the dependencies of a run and the clients behind them.
type Runtime struct {
	Deps     pipeline.Deps
	Storage  *gcsuploader.Client
	Exporter *infra.Exporter
}

// NeedsStorage reports whether cfg reads from or writes to Cloud Storage.
func NeedsStorage(cfg *config.Config, opts Options) bool {
	return gcsuploader.IsGCSURI(cfg.InputDir) || (cfg.Backup.Enabled() && !opts.NoBackup)
}

// Build creates the clients cfg asks for. Cloud clients are only created
// when a GCS input, a backup bucket or an export table is configured.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{}

	var store gcsuploader.ObjectStore
	if NeedsStorage(cfg, opts) {
		client, err := gcsuploader.NewClient(ctx, cfg.GCP.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		rt.Storage = client
		store = client
	}

	source, err := importer.NewSource(cfg.InputDir, store)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}
	rt.Deps = pipeline.FileDeps(cfg, source)

	if cfg.Backup.Enabled() && !opts.NoBackup {
		rt.Deps.Archiver = gcsuploader.NewArchiver(rt.Storage, cfg.Backup.Bucket, cfg.Backup.Prefix)
	}

	if cfg.Export.Enabled() && !opts.NoExport {
		exporter, err := infra.NewExporter(ctx, cfg.Export.Project, cfg.Export.Dataset, cfg.Export.Table, cfg.GCP.CredentialsFile)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("Build: %w", err)
		}
		rt.Exporter = exporter
		rt.Deps.Exporter = exporter
	}

	return rt, nil
}

// Reconcile runs one reconciliation with the clients cfg asks for and writes
// the report to w. Having nothing to import is reported as a warning and
// returns a nil result with no error.
func Reconcile(ctx context.Context, cfg *config.Config, opts Options, w io.Writer) (*pipeline.Result, error) {
	rt, err := Build(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	res, err := pipeline.Run(ctx, cfg, rt.Deps)
	if errors.Is(err, importer.ErrNoInputFiles) {
		PrintWarning(w, "No valid files found in %s.", rt.Deps.Source)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	PrintResult(w, res)
	return res, nil
}

// Close releases the cloud clients.
func (rt *Runtime) Close() {
	if rt.Storage != nil {
		_ = rt.Storage.Close()
	}
	if rt.Exporter != nil {
		_ = rt.Exporter.Close()
	}
}
