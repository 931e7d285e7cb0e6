package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-tracker/internal/app"
	"github.com/dvloznov/expense-tracker/internal/categorizer"
	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/gcsuploader"
	infraBQ "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/ledger"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/mapping"
	"github.com/dvloznov/expense-tracker/internal/suggest"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runReconcile(log)
	case "mapping":
		runMapping(log)
	case "inspect":
		runInspect(log)
	case "export":
		runExport(log)
	case "backup":
		runBackup(log)
	case "upload":
		runUpload(log)
	case "suggest":
		runSuggest(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expense Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Import the card export and reconcile it into the master ledger")
	fmt.Println("  mapping   List the keyword mapping or test it against a description")
	fmt.Println("  inspect   Summarize the master ledger by category")
	fmt.Println("  export    Export the whole master ledger to BigQuery")
	fmt.Println("  backup    Upload the ledger and mapping workbooks to Cloud Storage")
	fmt.Println("  upload    Upload a card export to the gs:// input location")
	fmt.Println("  suggest   Ask Gemini to categorize rows filed under the default category")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// configFlags registers the flags shared by every subcommand.
type configFlags struct {
	path      string
	overrides app.Overrides
}

func newConfigFlags(fs *flag.FlagSet) *configFlags {
	c := &configFlags{}
	fs.StringVar(&c.path, "config", "", "Path to the YAML config (optional)")
	fs.StringVar(&c.overrides.MappingFile, "mapping", "", "Mapping workbook (overrides mapping_file)")
	fs.StringVar(&c.overrides.LedgerFile, "ledger", "", "Master ledger workbook (overrides ledger_file)")
	fs.StringVar(&c.overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	return c
}

func (c *configFlags) load(log zerolog.Logger) (*config.Config, zerolog.Logger) {
	cfg, err := app.LoadConfig(c.path, c.overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg, logger.NewConsole(cfg.LogLevel)
}

func runReconcile(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cf := newConfigFlags(fs)
	fs.StringVar(&cf.overrides.InputDir, "input", "", "Input directory or gs://bucket/prefix (overrides input_dir)")
	noBackup := fs.Bool("no-backup", false, "Skip the Cloud Storage backup")
	noExport := fs.Bool("no-export", false, "Skip the BigQuery export")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	opts := app.Options{NoBackup: *noBackup, NoExport: *noExport}
	if _, err := app.Reconcile(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Reconciliation failed")
	}
}

func runMapping(log zerolog.Logger) {
	fs := flag.NewFlagSet("mapping", flag.ExitOnError)
	cf := newConfigFlags(fs)
	match := fs.String("match", "", "Show which category a description would get from the mapping")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	table, err := mapping.Load(cfg.MappingFile, cfg.MappingSheet)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load mapping")
	}
	index := table.Index(cfg.KeywordPolicy)

	if *match == "" {
		app.PrintMapping(os.Stdout, index)
		fmt.Printf("\n%d keywords in %d categories\n", table.Len(), len(index.Categories()))
		return
	}

	if m, ok := index.Match(*match); ok {
		fmt.Printf("%q -> %s (keyword %q, policy %s)\n", *match, m.Category, m.Keyword, cfg.KeywordPolicy)
		return
	}
	fmt.Printf("%q -> %s (no keyword matches)\n", *match, cfg.DefaultCategory)
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	cf := newConfigFlags(fs)
	fromBQ := fs.Bool("bigquery", false, "Summarize the exported BigQuery table instead of the workbook")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	if !*fromBQ {
		rows, err := ledger.Load(cfg.LedgerFile, cfg.LedgerSheet)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load master ledger")
		}
		fmt.Printf("%s: %d rows\n\n", cfg.LedgerFile, len(rows))
		app.PrintSummary(os.Stdout, ledger.Summarize(rows))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	exporter := newExporter(ctx, log, cfg)
	defer exporter.Close()

	totals, err := exporter.CategoryTotals(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query category totals")
	}

	fmt.Printf("%s\n\n", exporter.Table())
	for _, t := range totals {
		total := "-"
		if t.Total != nil {
			total = t.Total.FloatString(2)
		}
		fmt.Printf("  %-24s %-9s %6d %12s\n", t.Category, t.TypeExpense, t.Count, total)
	}
}

func newExporter(ctx context.Context, log zerolog.Logger, cfg *config.Config) *infraBQ.Exporter {
	if !cfg.Export.Enabled() {
		log.Fatal().Msg("export.project, export.dataset and export.table must be configured")
	}
	exporter, err := infraBQ.NewExporter(ctx, cfg.Export.Project, cfg.Export.Dataset, cfg.Export.Table, cfg.GCP.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	return exporter
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cf := newConfigFlags(fs)
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	runID := uuid.NewString()
	log = logger.WithRun(log, runID)
	ctx = logger.WithContext(ctx, log)

	rows, err := ledger.Load(cfg.LedgerFile, cfg.LedgerSheet)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load master ledger")
	}

	exporter := newExporter(ctx, log, cfg)
	defer exporter.Close()

	n, err := exporter.Export(ctx, runID, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d rows to %s\n", n, exporter.Table())
}

func runBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	cf := newConfigFlags(fs)
	bucket := fs.String("bucket", "", "GCS bucket (overrides backup.bucket)")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)
	if *bucket != "" {
		cfg.Backup.Bucket = *bucket
	}
	if !cfg.Backup.Enabled() {
		log.Fatal().Msg("Usage: cli backup -bucket NAME (or set backup.bucket)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := gcsuploader.NewClient(ctx, cfg.GCP.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	archiver := gcsuploader.NewArchiver(client, cfg.Backup.Bucket, cfg.Backup.Prefix)
	uris, err := archiver.Archive(ctx, uuid.NewString(), cfg.LedgerFile, cfg.MappingFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Backup failed")
	}

	app.PrintBackups(os.Stdout, uris)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	cf := newConfigFlags(fs)
	fs.StringVar(&cf.overrides.InputDir, "input", "", "gs://bucket/prefix to upload to (overrides input_dir)")
	filePath := fs.String("file", "", "Path to the local card export")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH [-input gs://bucket/prefix]")
	}
	bucket, prefix, err := gcsuploader.ParseGCSURI(cfg.InputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("input_dir must be a gs:// location to upload to")
	}
	// The importer only picks up the configured export name.
	objectName := path.Join(prefix, cfg.ExportFile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := gcsuploader.NewClient(ctx, cfg.GCP.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	log.Info().
		Str("bucket", bucket).
		Str("object", objectName).
		Str("file", filepath.Base(*filePath)).
		Msg("Uploading export to GCS")

	if err := client.UploadFile(ctx, bucket, objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, bucket, objectName)
}

func runSuggest(log zerolog.Logger) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	cf := newConfigFlags(fs)
	apply := fs.Bool("apply", false, "Append the suggestions to the mapping table")
	fs.Parse(os.Args[2:])

	cfg, log := cf.load(log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	rows, err := ledger.Load(cfg.LedgerFile, cfg.LedgerSheet)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load master ledger")
	}
	table, err := mapping.Load(cfg.MappingFile, cfg.MappingSheet)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load mapping")
	}

	descriptions := suggest.Uncategorized(rows, cfg.DefaultCategory)
	if len(descriptions) == 0 {
		fmt.Printf("No rows filed under %q.\n", cfg.DefaultCategory)
		return
	}

	model, err := suggest.NewGeminiModel(ctx, cfg.Suggest.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	categories := table.Index(cfg.KeywordPolicy).Categories()
	suggestions, err := suggest.New(model).Suggest(ctx, descriptions, categories, cfg.DefaultCategory)
	if err != nil {
		log.Fatal().Err(err).Msg("Suggestion failed")
	}

	fmt.Printf("%d of %d descriptions got a suggestion\n", len(suggestions), len(descriptions))
	for _, s := range suggestions {
		fmt.Printf("  %-40s -> %s\n", s.Description, s.Category)
	}
	if !*apply || len(suggestions) == 0 {
		return
	}

	expenseType := categorizer.New(nil, nil, cfg).ExpenseType
	changed := suggest.Apply(table, rows, suggestions, cfg.DefaultCategory, expenseType)
	if err := ledger.Save(cfg.LedgerFile, cfg.LedgerSheet, rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to save master ledger")
	}
	if err := table.Save(cfg.MappingFile, cfg.MappingSheet); err != nil {
		log.Fatal().Err(err).Msg("Failed to save mapping")
	}
	fmt.Printf("Recategorized %d ledger rows; mapping now has %d keywords\n", changed, table.Len())
}
