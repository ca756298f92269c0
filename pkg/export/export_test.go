package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:   "Affectations",
		Headers: []string{"student", "period", "organization"},
		Rows: []map[string]string{
			{"student": "Adams, Ada", "period": "P1", "organization": "CHU Liège"},
			{"student": "Zed, Zoe", "period": "P2"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "student,period,organization\n\"Adams, Ada\",P1,CHU Liège\n\"Zed, Zoe\",P2,\n", string(out))

	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterPaginatesLongTables(t *testing.T) {
	table := Table{Headers: []string{"a", "b", "c", "d", "e", "f", "g"}}
	for i := 0; i < 200; i++ {
		table.Rows = append(table.Rows, map[string]string{"a": "x"})
	}
	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Affectations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"student", "period", "organization"}, rows[0])
	assert.Equal(t, "CHU Liège", rows[1][2])
}

func TestForFormat(t *testing.T) {
	for format, contentType := range map[string]string{
		"csv":  "text/csv",
		"PDF":  "application/pdf",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	} {
		r, err := ForFormat(format)
		require.NoError(t, err)
		assert.Equal(t, contentType, r.ContentType())
	}

	_, err := ForFormat("docx")
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Len(t, []rune(sheetName("a very long workbook title exceeding the limit")), 31)
}
