// Package export writes extraction results to their final formats:
// loose CSV files, an XLSX workbook, and a zip archive bundling page
// artifacts with merged tables.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

// Exporter persists merged tables and page artifacts.
type Exporter struct {
	log *observability.Logger
}

// NewExporter creates an exporter.
func NewExporter(log *observability.Logger) *Exporter {
	if log == nil {
		log = observability.Nop()
	}
	return &Exporter{log: log.WithOperation("export")}
}

// WriteTables writes each merged table as a CSV file under dir and
// returns the written paths in input order.
func (e *Exporter) WriteTables(dir string, merged []domain.MergedTable) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create %s", dir), err)
	}

	paths := make([]string, 0, len(merged))
	for _, table := range merged {
		path := filepath.Join(dir, table.Filename)
		if err := os.WriteFile(path, []byte(table.CSV), 0o644); err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to write %s", path), err)
		}
		paths = append(paths, path)
	}

	e.log.Info().Int("tables", len(paths)).Str("dir", dir).Msg("tables written")
	return paths, nil
}
