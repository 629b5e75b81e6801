package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXExporter renders each table of a document onto its own worksheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render builds the workbook and returns its bytes.
func (e *XLSXExporter) Render(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	used := map[string]int{}
	first := true
	for i, table := range doc.Tables {
		if len(table.Headers) == 0 {
			continue
		}
		name := sheetName(table.Title, i, used)
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}

		for col, header := range table.Headers {
			ref, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(name, ref, header); err != nil {
				return nil, fmt.Errorf("write header: %w", err)
			}
		}
		last, err := excelize.CoordinatesToCellName(len(table.Headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}

		for r, row := range table.Rows {
			for col := range table.Headers {
				ref, err := excelize.CoordinatesToCellName(col+1, r+2)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(name, ref, cell(row, col)); err != nil {
					return nil, fmt.Errorf("write cell %s: %w", ref, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName derives a unique worksheet name within Excel's limits.
func sheetName(title string, index int, used map[string]int) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = fmt.Sprintf("Table %d", index+1)
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	used[name]++
	if n := used[name]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		runes := []rune(name)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		name = string(runes) + suffix
	}
	return name
}
