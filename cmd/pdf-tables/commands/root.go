package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pdf-tables",
	Short: "Extract tables from PDF documents",
	Long: `pdf-tables extracts tabular data from PDF documents. Each page is
classified as native or scanned, rendered to an image, and paired with
word tokens from the text layer or OCR. A detection model finds tables
on every page, and fragments of the same table split across page
breaks are merged back together.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
