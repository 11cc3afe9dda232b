package commands

import (
	"github.com/spf13/cobra"

	"github.com/tablewise/pdf-tables/cmd/pdf-tables/ui"
	"github.com/tablewise/pdf-tables/internal/observability"
	"github.com/tablewise/pdf-tables/internal/pdf"
)

var inspectPDFPath string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how each page of a PDF would be processed",
	Long: `Inspect classifies every page of a PDF without rendering or OCR:
which pages have a usable text layer, which would go through OCR, and
at what scale each page would be rasterized.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectPDFPath, "pdf", "p", "", "path to PDF file (required)")
	inspectCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ui.Init(noColor, verbose)

	doc, err := pdf.Open(inspectPDFPath, observability.Nop())
	if err != nil {
		return err
	}
	defer doc.Close()

	ui.Section("Page Classification")
	ui.Message("%-6s %-12s %-6s %-10s %s", "Page", "Mode", "Scale", "Images", "Text chars")

	for i := 0; i < doc.PageCount(); i++ {
		info, err := doc.Page(i)
		if err != nil {
			ui.Warning("page %d: %v", i+1, err)
			continue
		}
		decision := pdf.Classify(info)
		ui.Message("%-6d %-12s %-6.1f %-10d %d",
			i+1, decision.Mode, decision.Scale, info.ImageCount, len(info.Text))
	}
	return nil
}
