package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statement() Dataset {
	return Dataset{
		Headers: []string{"Date", "Reference", "Type", "Amount", "Balance"},
		Rows: []map[string]string{
			{"Date": "2024-01-02", "Reference": "TXN-20240102-000042", "Type": "recharge", "Amount": "2500", "Balance": "2500"},
			{"Date": "2024-01-03", "Reference": "TXN-20240103-000777", "Type": "deduction", "Amount": "1200", "Balance": "1300"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(statement())
	require.NoError(t, err)
	assert.Equal(t, "Date,Reference,Type,Amount,Balance\n2024-01-02,TXN-20240102-000042,recharge,2500,2500\n2024-01-03,TXN-20240103-000777,deduction,1200,1300\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterFooterAndBOM(t *testing.T) {
	data := statement()
	data.Footer = map[string]string{"Type": "closing", "Balance": "1300"}
	out, err := (&CSVExporter{BOM: true}).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbfDate,")))
	assert.True(t, bytes.HasSuffix(out, []byte(",,closing,,1300\n")))
}

func TestColumnWidthsFitPage(t *testing.T) {
	data := statement()
	data.Rows[0]["Reference"] = "TXN-20240102-000042-WITH-A-VERY-LONG-SUFFIX-FOR-TESTING"
	widths := columnWidths(data)
	require.Len(t, widths, len(data.Headers))
	var total float64
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, pageWidth, total, 0.01)
	assert.Greater(t, widths[1], widths[0])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(statement(), "Wallet statement")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderAdmitCard(t *testing.T) {
	out, err := NewPDFExporter().RenderAdmitCard(AdmitCard{
		ApplicationID:  "app-1",
		StudentName:    "Rahim Uddin",
		UniversityName: "Dhaka University",
		TransactionID:  "TXN-20240103-000777",
		AppliedAt:      time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		IssuedAt:       time.Date(2024, 1, 3, 10, 0, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().RenderAdmitCard(AdmitCard{})
	assert.Error(t, err)
}
