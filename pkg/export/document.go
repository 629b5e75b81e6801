// Package export renders report documents to CSV, PDF and XLSX.
package export

import "errors"

// Table is one titled block of tabular content.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Document is an ordered set of tables rendered into a single file.
type Document struct {
	Title  string
	Tables []Table
}

var errEmptyDocument = errors.New("document has no tables with headers")

func (d Document) validate() error {
	for _, table := range d.Tables {
		if len(table.Headers) > 0 {
			return nil
		}
	}
	return errEmptyDocument
}

// cell returns row[i] or "" when the row is short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
