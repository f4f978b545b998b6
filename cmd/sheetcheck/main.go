// Command sheetcheck prints the configured Google Sheet the way the
// tracker reads it, to verify credentials and sheet layout.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Sheets configuration invalid", "error", err)
		os.Exit(1)
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := backend.NewFactory(logger).CreateSheetsStore(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to open sheet", "error", err)
		os.Exit(1)
	}
	rows, err := store.ReadAll(ctx)
	if err != nil {
		logger.Error("Failed to read sheet", "error", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	entries, skipped := ledger.ParseRows(rows)
	b := ledger.CurrentBalance(entries)
	fmt.Printf("\n%d entries, %d unreadable rows\nincome %s  expense %s  balance %s\n",
		len(entries), skipped,
		core.FormatRupiah(b.Income), core.FormatRupiah(b.Expense), core.FormatRupiah(b.Balance))
}
