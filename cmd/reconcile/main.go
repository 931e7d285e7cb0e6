package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dvloznov/expense-tracker/internal/app"
	"github.com/dvloznov/expense-tracker/internal/logger"
)

func main() {
	var (
		configPath string
		overrides  app.Overrides
		opts       app.Options
	)

	flag.StringVar(&configPath, "config", "", "Path to the YAML config (optional; defaults apply when missing)")
	flag.StringVar(&overrides.InputDir, "input", "", "Input directory or gs://bucket/prefix (overrides input_dir)")
	flag.StringVar(&overrides.MappingFile, "mapping", "", "Mapping workbook (overrides mapping_file)")
	flag.StringVar(&overrides.LedgerFile, "ledger", "", "Master ledger workbook (overrides ledger_file)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.NoBackup, "no-backup", false, "Skip the Cloud Storage backup")
	flag.BoolVar(&opts.NoExport, "no-export", false, "Skip the BigQuery export")
	flag.Parse()

	log := logger.New()

	cfg, err := app.LoadConfig(configPath, overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewConsole(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if _, err := app.Reconcile(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Reconciliation failed")
	}
}
