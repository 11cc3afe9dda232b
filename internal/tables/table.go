// Package tables parses detection-model CSV fragments and merges
// fragments that continue one another across consecutive pages.
package tables

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tablewise/pdf-tables/internal/domain"
)

// Table is a parsed CSV table with an ordered header and ordered rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnCount returns the number of header columns.
func (t *Table) ColumnCount() int { return len(t.Header) }

// RowCount returns the number of data rows (header excluded).
func (t *Table) RowCount() int { return len(t.Rows) }

// HeaderEquals reports whether the other table has the exact same
// ordered header.
func (t *Table) HeaderEquals(other *Table) bool {
	if len(t.Header) != len(other.Header) {
		return false
	}
	for i, h := range t.Header {
		if other.Header[i] != h {
			return false
		}
	}
	return true
}

// Append adds the other table's rows to this one. Headers are not
// touched; callers decide compatibility first.
func (t *Table) Append(other *Table) {
	t.Rows = append(t.Rows, other.Rows...)
}

// ToCSV serializes the table back to CSV text, header first.
func (t *Table) ToCSV() string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(t.Header)
	for _, row := range t.Rows {
		_ = w.Write(row)
	}
	w.Flush()
	return sb.String()
}

// ParseCSV parses CSV text into a Table. The first record is the
// header; every row must have the header's column count.
func ParseCSV(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	records, err := r.ReadAll()
	if err != nil {
		return nil, domain.TableParseError("malformed CSV", err)
	}
	if len(records) == 0 {
		return nil, domain.TableParseError("empty CSV", nil)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Fragment filenames follow Page_<NN>_Table_<MM>.csv with 1-based,
// zero-padded indices. The width grows past two digits for long
// documents; parsing is numeric, never lexical.
var fragmentNameRe = regexp.MustCompile(`^Page_(\d+)_Table_(\d+)\.csv$`)

// FragmentName builds the canonical filename for a detected table.
func FragmentName(page, table int) string {
	return fmt.Sprintf("Page_%02d_Table_%02d.csv", page, table)
}

// TableFragment is one parsed fragment: a single page's detected table
// plus the page ordinal recovered from its filename.
type TableFragment struct {
	Filename string
	Page     int
	Table    *Table
}

// ParseFragment recovers the page number from the fragment's filename
// and parses its CSV payload.
func ParseFragment(f domain.Fragment) (*TableFragment, error) {
	m := fragmentNameRe.FindStringSubmatch(f.Filename)
	if m == nil {
		return nil, domain.TableParseError(fmt.Sprintf("unrecognized fragment filename %q", f.Filename), nil)
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page < 1 {
		return nil, domain.TableParseError(fmt.Sprintf("invalid page number in %q", f.Filename), err)
	}

	table, err := ParseCSV(f.CSV)
	if err != nil {
		return nil, err
	}

	return &TableFragment{Filename: f.Filename, Page: page, Table: table}, nil
}
