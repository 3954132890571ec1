package circularparse

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "table": true, "section": true, "article": true,
}

// parseHTML flattens the page to text lines and extracts from them, using
// the first heading or the title as a university name hint.
func parseHTML(body []byte) (*models.AdmissionCircularData, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse circular html: %w", err)
	}

	var (
		title string
		text  strings.Builder
		walk  func(*html.Node)
	)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title", "h1":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				text.WriteString(s)
				text.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			text.WriteString("\n")
		}
	}
	walk(doc)

	return ExtractFromText(title, text.String()), nil
}
