package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewise/pdf-tables/cmd/pdf-tables/ui"
	"github.com/tablewise/pdf-tables/internal/config"
	"github.com/tablewise/pdf-tables/internal/export"
	"github.com/tablewise/pdf-tables/internal/observability"
	"github.com/tablewise/pdf-tables/pkg/extractor"
)

var (
	extractPDFPath  string
	extractOutDir   string
	extractModelURL string
	extractLanguage string
	extractWorkers  int
	extractXLSX     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract tables from a PDF document",
	Long: `Extract tables from a PDF document. Writes per-page images and token
lists, the merged tables as CSV files, a zip bundle of everything, and
optionally an XLSX workbook.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractPDFPath, "pdf", "p", "", "path to PDF file (required)")
	extractCmd.Flags().StringVarP(&extractOutDir, "output", "o", "", "output directory (default: alongside the PDF)")
	extractCmd.Flags().StringVar(&extractModelURL, "model-url", "", "table detection endpoint (overrides TABLE_MODEL_URL)")
	extractCmd.Flags().StringVar(&extractLanguage, "lang", "", "OCR language (default: eng)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "parallel page workers (default: 1)")
	extractCmd.Flags().BoolVar(&extractXLSX, "xlsx", false, "also write merged tables as an XLSX workbook")
	extractCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Ctrl-C cancels the run; in-flight pages finish or abort cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	ui.Init(noColor, verbose)
	ui.Section("PDF Table Extraction")

	if extractOutDir == "" {
		base := filepath.Base(extractPDFPath)
		name := base[:len(base)-len(filepath.Ext(base))]
		extractOutDir = filepath.Join(filepath.Dir(extractPDFPath), name+"-tables")
	}
	if err := os.MkdirAll(extractOutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ui.Info("PDF file: %s", extractPDFPath)
	ui.Info("Output directory: %s", extractOutDir)
	ui.Newline()

	logLevel := cfg.LogLevel
	if verbose {
		logLevel = "debug"
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:       logLevel,
		Format:      cfg.LogFormat,
		ServiceName: "pdf-tables",
	})

	client, err := extractor.NewClientWithConfig(&extractor.Config{
		ModelURL:    cfg.ModelURL,
		OCRLanguage: cfg.OCRLanguage,
		Workers:     cfg.Workers,
		OutputDir:   extractOutDir,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	events, outcomes, err := client.Process(ctx, extractPDFPath)
	if err != nil {
		return err
	}

	renderEvents(events)

	outcome := <-outcomes
	if outcome.Err != nil {
		return fmt.Errorf("extraction failed: %w", outcome.Err)
	}
	result := outcome.Result

	if err := writeOutputs(result, cfg, log); err != nil {
		return err
	}

	printSummary(result)
	return nil
}

func applyFlags(cfg *config.Config) {
	if extractModelURL != "" {
		cfg.ModelURL = extractModelURL
	}
	if extractLanguage != "" {
		cfg.OCRLanguage = extractLanguage
	}
	if extractWorkers > 0 {
		cfg.Workers = extractWorkers
	}
	if extractXLSX {
		cfg.WriteXLSX = true
	}
}

// renderEvents drives the terminal display from the event stream:
// a page-counting bar while pages process, a spinner while the
// detection model runs.
func renderEvents(events <-chan extractor.StreamEvent) {
	bar := ui.NewProgressBar(-1, "Processing pages")
	var spin *ui.Spinner

	for ev := range events {
		switch ev.Type {
		case extractor.EventPageComplete:
			bar.Add(1)
		case extractor.EventDetecting:
			if spin == nil {
				bar.Finish()
				spin = ui.NewSpinner("Detecting tables...")
				spin.Start()
			}
			spin.UpdateMessage(fmt.Sprintf("Detecting tables on page %d...", ev.PageNumber))
		case extractor.EventError:
			ui.Warning("%v", ev.Payload)
		}
	}

	if spin != nil {
		spin.Stop()
	} else {
		bar.Finish()
	}
}

func writeOutputs(result *extractor.Result, cfg *config.Config, log *observability.Logger) error {
	exporter := export.NewExporter(log)

	tablesDir := filepath.Join(extractOutDir, "tables")
	if _, err := exporter.WriteTables(tablesDir, result.Tables); err != nil {
		return err
	}

	archivePath := filepath.Join(extractOutDir, "results.zip")
	if err := exporter.WriteArchive(archivePath, result.Pages, result.Tables); err != nil {
		return err
	}

	if cfg.WriteXLSX && len(result.Tables) > 0 {
		workbookPath := filepath.Join(extractOutDir, "tables.xlsx")
		if err := exporter.WriteWorkbook(workbookPath, result.Tables); err != nil {
			return err
		}
		ui.Success("Workbook written: %s", workbookPath)
	}

	ui.Success("Tables written: %s", tablesDir)
	ui.Success("Archive written: %s", archivePath)
	return nil
}

func printSummary(result *extractor.Result) {
	stats := result.Stats

	ui.Section("Summary")
	ui.Message("Pages processed:  %d (%d native, %d OCR)",
		stats.PagesProcessed, stats.NativePages, stats.OCRPages)
	if stats.DegradedPages > 0 {
		ui.Warning("Degraded pages:   %d", stats.DegradedPages)
	}
	if stats.TablesFound == 0 {
		ui.Warning("No tables detected in this document")
	}
	ui.Message("Tables found:     %d", stats.TablesFound)
	ui.Message("Tables merged:    %d", stats.TablesMerged)
	ui.Message("Total time:       %s", stats.TotalTime.Round(time.Millisecond))
}
