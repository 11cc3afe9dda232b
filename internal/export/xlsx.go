package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/tables"
)

// Excel caps sheet names at 31 characters.
const maxSheetName = 31

// WriteWorkbook writes every merged table into one XLSX workbook, one
// sheet per table, and saves it at path.
func (e *Exporter) WriteWorkbook(path string, merged []domain.MergedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, table := range merged {
		parsed, err := tables.ParseCSV(table.CSV)
		if err != nil {
			return err
		}

		sheet := sheetName(table.Filename, i)
		if _, err := f.NewSheet(sheet); err != nil {
			return domain.IOError(fmt.Sprintf("failed to create sheet %s", sheet), err)
		}

		if err := writeSheet(f, sheet, parsed); err != nil {
			return err
		}
	}

	// Drop excelize's default sheet when we wrote at least one table.
	if len(merged) > 0 {
		_ = f.DeleteSheet("Sheet1")
		if index, err := f.GetSheetIndex(sheetName(merged[0].Filename, 0)); err == nil {
			f.SetActiveSheet(index)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return domain.IOError(fmt.Sprintf("failed to save workbook %s", path), err)
	}

	e.log.Info().Int("sheets", len(merged)).Str("path", path).Msg("workbook written")
	return nil
}

func writeSheet(f *excelize.File, sheet string, table *tables.Table) error {
	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	for i, h := range table.Header {
		if err := write(i+1, 1, h); err != nil {
			return domain.IOError(fmt.Sprintf("failed to write header on sheet %s", sheet), err)
		}
	}
	for r, row := range table.Rows {
		for c, v := range row {
			if err := write(c+1, r+2, v); err != nil {
				return domain.IOError(fmt.Sprintf("failed to write row %d on sheet %s", r+2, sheet), err)
			}
		}
	}
	return nil
}

// sheetName derives a legal, unique sheet name from a fragment
// filename: extension stripped, forbidden characters replaced, length
// capped, and the table's ordinal appended as a tiebreaker.
func sheetName(filename string, ordinal int) string {
	name := strings.TrimSuffix(filename, ".csv")
	name = strings.NewReplacer(
		":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
	).Replace(name)

	suffix := fmt.Sprintf(" (%d)", ordinal+1)
	if len(name)+len(suffix) > maxSheetName {
		name = name[:maxSheetName-len(suffix)]
	}
	return name + suffix
}
