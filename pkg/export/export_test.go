package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDocument() Document {
	return Document{
		Title: "Customer feedback",
		Tables: []Table{
			{Title: "Summary", Headers: []string{"Metric", "Value"}, Rows: [][]string{{"Submitted", "12"}, {"Drafts", "3"}}},
			{Title: "Q1: Favourite colour", Headers: []string{"Option", "Count"}, Rows: [][]string{{"Red", "7"}, {"Blue"}}},
		},
	}
}

func TestCSVExporterRendersTablesInOrder(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary"}, records[0])
	assert.Equal(t, []string{"Metric", "Value"}, records[1])
	assert.Equal(t, []string{"Submitted", "12"}, records[2])
	assert.Equal(t, []string{"Drafts", "3"}, records[3])
	assert.Equal(t, []string{"Q1: Favourite colour"}, records[4])
	assert.Equal(t, []string{"Option", "Count"}, records[5])
	assert.Equal(t, []string{"Red", "7"}, records[6])
	assert.Equal(t, []string{"Blue", ""}, records[7])
	assert.Len(t, records, 8)
}

func TestRenderersRejectEmptyDocument(t *testing.T) {
	_, err := NewCSVExporter().Render(Document{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Document{Tables: []Table{{Title: "no headers"}}})
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Document{})
	assert.Error(t, err)
}

func TestPDFExporterProducesPDF(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestXLSXExporterWritesOneSheetPerTable(t *testing.T) {
	payload, err := NewXLSXExporter().Render(sampleDocument())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Q1- Favourite colour"}, f.GetSheetList())
	value, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "12", value)
}

func TestSheetNameIsUniqueAndBounded(t *testing.T) {
	used := map[string]int{}
	long := "A question prompt that is far longer than Excel allows"
	first := sheetName(long, 0, used)
	second := sheetName(long, 1, used)

	assert.Len(t, []rune(first), maxSheetName)
	assert.LessOrEqual(t, len([]rune(second)), maxSheetName)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "Table 3", sheetName("  ", 2, used))
}

func TestQRCodePNG(t *testing.T) {
	png, err := QRCodePNG("https://surveys.example.com/f/abc123", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
