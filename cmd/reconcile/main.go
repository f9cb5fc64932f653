package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/reconly/reconcile-backend/internal/api/dto"
	"github.com/reconly/reconcile-backend/internal/application/service"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/infrastructure/config"
	"github.com/reconly/reconcile-backend/internal/infrastructure/logging"
)

func main() {
	var (
		configFile   = flag.String("config", "config.yaml", "Configuration file path")
		invoicesFile = flag.String("invoices", "", "Invoices JSON file")
		bankFile     = flag.String("bank", "", "Bank transactions JSON file")
		threshold    = flag.Float64("threshold", 0, "Score threshold (0 = use configured value)")
		outputFile   = flag.String("output", "", "Write the full result JSON to this file")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile")

	if *invoicesFile == "" || *bankFile == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -invoices invoices.json -bank bank.json")
		flag.PrintDefaults()
		os.Exit(2)
	}

	invoices := loadRecords(*invoicesFile, record.SourceInvoice, logger)
	bank := loadRecords(*bankFile, record.SourceBank, logger)

	engine, err := service.NewEngine(cfg.Matching, logger)
	if err != nil {
		logger.Error("failed to build matching engine", "error", err)
		os.Exit(1)
	}

	t := cfg.Matching.Threshold
	if *threshold > 0 {
		t = *threshold
	}

	run := engine.Run(invoices, bank, t)
	printSummary(run)

	if *outputFile != "" {
		writeResult(*outputFile, run, logger)
	}
}

func loadRecords(path string, source record.Source, logger *slog.Logger) []record.Record {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read input", "path", path, "error", err)
		os.Exit(1)
	}

	var reqs []dto.RecordRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		logger.Error("failed to parse input", "path", path, "error", err)
		os.Exit(1)
	}

	records, err := dto.ToRecords(reqs, source)
	if err != nil {
		logger.Error("bad record", "path", path, "error", err)
		os.Exit(1)
	}
	return records
}

func printSummary(run *recon.Run) {
	stats := run.Stats()

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  invoices:   %d\n", run.TotalInvoices())
	fmt.Printf("  bank:       %d\n", run.TotalBank())
	fmt.Printf("  matches:    %d\n", stats.MatchCount)
	fmt.Printf("  unmatched:  %d invoices, %d bank\n",
		stats.UnmatchedInvoiceCount, stats.UnmatchedBankCount)
	fmt.Printf("  matched:    %s of %s\n",
		record.FormatCents(stats.MatchedAmountCents),
		record.FormatCents(stats.TotalInvoiceAmountCents))
	fmt.Printf("  variance:   %s\n", record.FormatCents(stats.VarianceAmountCents))
	fmt.Println()

	for _, m := range run.Matches() {
		inv := run.Invoice(m.InvoiceIndex)
		bank := run.Bank(m.BankIndex)
		fmt.Printf("  [%.2f] %-40q <-> %-40q %s\n",
			m.Score, trunc(inv.Description, 38), trunc(bank.Description, 38),
			record.FormatCents(inv.AmountCents))
	}
	for _, idx := range run.UnmatchedInvoiceIndices() {
		inv := run.Invoice(idx)
		fmt.Printf("  [ -- ] %-40q unmatched invoice %s\n",
			trunc(inv.Description, 38), record.FormatCents(inv.AmountCents))
	}
	for _, idx := range run.UnmatchedBankIndices() {
		b := run.Bank(idx)
		fmt.Printf("  [ -- ] %-40q unmatched bank    %s\n",
			trunc(b.Description, 38), record.FormatCents(b.AmountCents))
	}
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

type resultFile struct {
	RunID     string        `json:"run_id"`
	Threshold float64       `json:"threshold"`
	Matches   []recon.Match `json:"matches"`
	Unmatched struct {
		Invoices []int `json:"invoices"`
		Bank     []int `json:"bank"`
	} `json:"unmatched"`
	Stats recon.Stats `json:"stats"`
}

func writeResult(path string, run *recon.Run, logger *slog.Logger) {
	out := resultFile{
		RunID:     run.ID,
		Threshold: run.Threshold,
		Matches:   run.Matches(),
		Stats:     run.Stats(),
	}
	out.Unmatched.Invoices = run.UnmatchedInvoiceIndices()
	out.Unmatched.Bank = run.UnmatchedBankIndices()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("failed to write result", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("result written", "path", path)
}
