package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// AdmitCard is the printable content of an admit card.
type AdmitCard struct {
	ApplicationID  string
	StudentName    string
	Email          string
	SSCRoll        string
	HSCRoll        string
	UniversityName string
	ExamDate       string
	ExamTime       string
	ExamVenue      string
	TransactionID  string
	AppliedAt      time.Time
	IssuedAt       time.Time
}

// RenderAdmitCard draws a single page admit card.
func (e *PDFExporter) RenderAdmitCard(card AdmitCard) ([]byte, error) {
	if card.ApplicationID == "" {
		return nil, fmt.Errorf("admit card requires an application id")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, card.UniversityName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Admission Test Admit Card", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Application ID", card.ApplicationID},
		{"Candidate", card.StudentName},
		{"Email", card.Email},
		{"SSC Roll", card.SSCRoll},
		{"HSC Roll", card.HSCRoll},
		{"Exam Date", orDash(card.ExamDate)},
		{"Exam Time", orDash(card.ExamTime)},
		{"Exam Venue", orDash(card.ExamVenue)},
		{"Payment Reference", card.TransactionID},
		{"Applied At", formatTime(card.AppliedAt)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(125, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Issued "+formatTime(card.IssuedAt)+". Bring this card and a photo ID to the exam hall.", "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render admit card: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
