package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/dvloznov/expense-tracker/internal/categorizer"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/gcsuploader"
	"github.com/dvloznov/expense-tracker/internal/ledger"
	"github.com/dvloznov/expense-tracker/internal/mapping"
	"github.com/dvloznov/expense-tracker/internal/pipeline"
)

var (
	heading = color.New(color.BgBlue, color.FgWhite)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	fixed   = color.New(color.BgGreen, color.FgBlack)
	varying = color.New(color.BgWhite, color.FgBlack)
)

// PrintResult writes the end-of-run report.
func PrintResult(w io.Writer, res *pipeline.Result) {
	heading.Fprintf(w, " Run %s ", res.RunID)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Imported rows:       %d\n", res.Imported)
	good.Fprintf(w, "Added unique rows:   %d\n", res.Added)
	fmt.Fprintf(w, "Ledger rows:         %d\n", res.Total)
	fmt.Fprintf(w, "Categorized by:      history %d, keyword %d, default %d\n",
		res.BySource[categorizer.SourceHistory],
		res.BySource[categorizer.SourceKeyword],
		res.BySource[categorizer.SourceDefault])

	if len(res.NewMappings) == 0 {
		fmt.Fprintln(w, "Mapping:             no new keywords")
	} else {
		good.Fprintf(w, "Mapping:             %d new keywords\n", len(res.NewMappings))
		for _, e := range res.NewMappings {
			fmt.Fprintf(w, "  + %-20s %s\n", e.Category, e.Keyword)
		}
	}
	PrintBackups(w, res.Backups)
	if res.Exported > 0 {
		fmt.Fprintf(w, "Exported rows:       %d\n", res.Exported)
	}
}

// PrintBackups lists uploaded objects by file name.
func PrintBackups(w io.Writer, uris []string) {
	for _, uri := range uris {
		fmt.Fprintf(w, "Backup:              %-20s %s\n", gcsuploader.ExtractFilenameFromGCSURI(uri), uri)
	}
}

// PrintWarning writes a highlighted one-line warning.
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	warn.Fprintf(w, "⚠️ "+format+"\n", args...)
}

// PrintSummary writes the per-category totals of a ledger.
func PrintSummary(w io.Writer, s ledger.Summary) {
	heading.Fprintf(w, " %-24s %-9s %6s %12s ", "Category", "Type", "Rows", "Total")
	fmt.Fprintln(w)
	for _, c := range s.Categories {
		tag := varying
		if c.TypeExpense == domain.ExpenseFixed {
			tag = fixed
		}
		fmt.Fprintf(w, " %-24s ", c.Category)
		tag.Fprintf(w, " %-8s", c.TypeExpense)
		fmt.Fprintf(w, " %6d %12s\n", c.Count, c.Total.StringFixed(2))
	}
	fmt.Fprintf(w, "\nFixed: %s   Variable: %s\n", s.Fixed.StringFixed(2), s.Variable.StringFixed(2))
	if s.Undated > 0 {
		PrintWarning(w, "%d rows have no valid date", s.Undated)
	}
}

// PrintMapping writes the keyword table grouped by category, in match order.
func PrintMapping(w io.Writer, ix *mapping.Index) {
	for _, category := range ix.Categories() {
		keywords := append([]string(nil), ix.Keywords(category)...)
		sort.Strings(keywords)
		heading.Fprintf(w, " %s ", category)
		fmt.Fprintf(w, " (%d)\n", len(keywords))
		for _, kw := range keywords {
			fmt.Fprintf(w, "  %s\n", kw)
		}
	}
}
