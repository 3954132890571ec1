// Package circularparse turns fetched admission circular documents into
// structured circular data.
package circularparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// Format is a detected document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// ErrNoCircular is returned when a document yields no university name.
var ErrNoCircular = errors.New("no admission circular data found in document")

// Detect picks the document format from the content type, the URL extension
// and finally the leading bytes.
func Detect(contentType, sourceURL string, body []byte) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return FormatPDF
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "html"):
		return FormatHTML
	}

	switch strings.ToLower(path.Ext(strings.SplitN(sourceURL, "?", 2)[0])) {
	case ".pdf":
		return FormatPDF
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".html", ".htm":
		return FormatHTML
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.HasPrefix(trimmed, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return FormatJSON
	}
	if sniffed := http.DetectContentType(trimmed); strings.Contains(sniffed, "html") {
		return FormatHTML
	}
	return FormatText
}

// Parse decodes body according to its detected format. The circular link
// defaults to sourceURL.
func Parse(contentType, sourceURL string, body []byte) (*models.AdmissionCircularData, error) {
	var (
		data *models.AdmissionCircularData
		err  error
	)
	switch Detect(contentType, sourceURL, body) {
	case FormatJSON:
		data, err = parseJSON(body)
	case FormatYAML:
		data, err = parseYAML(body)
	case FormatHTML:
		data, err = parseHTML(body)
	case FormatPDF:
		data, err = parsePDF(body)
	default:
		data = ExtractFromText("", string(body))
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.UniversityName) == "" {
		return nil, ErrNoCircular
	}
	if data.CircularLink == "" {
		data.CircularLink = sourceURL
	}
	return data, nil
}

var (
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	doubleComma   = regexp.MustCompile(`([,{\[])\s*,`)
	jsonObject    = regexp.MustCompile(`\{[\s\S]*\}`)
)

// parseJSON accepts an object or a list whose first element is the circular.
// Trailing and doubled commas are repaired before a second attempt.
func parseJSON(body []byte) (*models.AdmissionCircularData, error) {
	raw := bytes.TrimSpace(body)
	if !bytes.HasPrefix(raw, []byte("[")) {
		if m := jsonObject.Find(raw); m != nil {
			raw = m
		}
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		repaired := doubleComma.ReplaceAll(trailingComma.ReplaceAll(raw, []byte("$1")), []byte("$1"))
		if err2 := json.Unmarshal(repaired, &generic); err2 != nil {
			return nil, fmt.Errorf("decode circular json: %w", err)
		}
		raw = repaired
	}
	if list, ok := generic.([]interface{}); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("decode circular json: empty list")
		}
		first, err := json.Marshal(list[0])
		if err != nil {
			return nil, fmt.Errorf("decode circular json: %w", err)
		}
		raw = first
	}
	var data models.AdmissionCircularData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode circular json: %w", err)
	}
	return &data, nil
}

func parseYAML(body []byte) (*models.AdmissionCircularData, error) {
	var data models.AdmissionCircularData
	if err := yaml.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode circular yaml: %w", err)
	}
	return &data, nil
}

// ParseCatalog decodes a YAML list of circulars.
func ParseCatalog(body []byte) ([]models.AdmissionCircularData, error) {
	var items []models.AdmissionCircularData
	if err := yaml.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode circular catalog: %w", err)
	}
	return items, nil
}
