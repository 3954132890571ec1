package circularparse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// parsePDF extracts text row by row, falling back to plain text per page.
func parsePDF(body []byte) (*models.AdmissionCircularData, error) {
	content := trimAfterEOF(body)
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open circular pdf: %w", err)
	}
	if reader.NumPage() == 0 {
		return nil, fmt.Errorf("circular pdf has no pages")
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			plain, plainErr := page.GetPlainText(nil)
			if plainErr != nil {
				continue
			}
			text.WriteString(plain)
			text.WriteString("\n")
			continue
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				text.WriteString(s)
				text.WriteString("\n")
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("circular pdf has no extractable text")
	}
	return ExtractFromText("", text.String()), nil
}

// trimAfterEOF drops bytes appended after the last %%EOF marker.
func trimAfterEOF(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}
	marker := []byte("%%EOF")
	last := bytes.LastIndex(content, marker)
	if last == -1 {
		return content
	}
	end := last + len(marker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}
