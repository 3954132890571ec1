package boardresult

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	gpaLabelValue = regexp.MustCompile(`(\d+\.?\d*)`)
	gpaTwoDecimal = regexp.MustCompile(`^(\d+\.\d{2})$`)
	gpaInText     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)GPA[:\s-]*(\d+\.?\d*)`),
		regexp.MustCompile(`(?i)Grade\s*Point\s*Average[:\s]*(\d+\.?\d*)`),
		regexp.MustCompile(`(?i)(\d+\.\d{2})\s*(?:GPA|Grade)`),
	}
)

// form is the result form scraped from the landing page.
type form struct {
	action string
	fields map[string]string
	names  map[string]bool
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(node *html.Node) bool {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

func findAll(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		return true
	})
	return out
}

// extractForm returns the first form with its hidden fields and control names.
func extractForm(doc *html.Node) (*form, bool) {
	forms := findAll(doc, "form")
	if len(forms) == 0 {
		return nil, false
	}
	f := &form{fields: map[string]string{}, names: map[string]bool{}}
	f.action, _ = attr(forms[0], "action")
	walk(forms[0], func(n *html.Node) bool {
		if n.Type != html.ElementNode || (n.Data != "input" && n.Data != "select") {
			return true
		}
		name, ok := attr(n, "name")
		if !ok || name == "" {
			return true
		}
		f.names[name] = true
		if typ, _ := attr(n, "type"); n.Data == "input" && strings.EqualFold(typ, "hidden") {
			value, _ := attr(n, "value")
			f.fields[name] = value
		}
		return true
	})
	return f, true
}

// extractCaptcha finds the arithmetic prompt, preferring the cell in the
// same row as the value_s input.
func extractCaptcha(doc *html.Node) (string, bool) {
	for _, row := range findAll(doc, "tr") {
		hasInput := false
		walk(row, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.Data == "input" {
				if name, _ := attr(n, "name"); name == "value_s" {
					hasInput = true
				}
			}
			return !hasInput
		})
		if !hasInput {
			continue
		}
		for _, td := range findAll(row, "td") {
			if text := textContent(td); isCaptchaText(text) {
				return text, true
			}
		}
		if m := captchaOperands.FindString(textContent(row)); m != "" {
			return m, true
		}
	}

	var found string
	walk(doc, func(n *html.Node) bool {
		if found != "" {
			return false
		}
		if n.Type == html.TextNode && isCaptchaText(n.Data) {
			found = strings.TrimSpace(n.Data)
		}
		return true
	})
	return found, found != ""
}

func validGPA(raw string) bool {
	v, err := strconv.ParseFloat(raw, 64)
	return err == nil && v >= 0 && v <= 5
}

// ParseGPA extracts the GPA from a result page, first from label/value table
// rows and then from free text.
func ParseGPA(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	for _, row := range findAll(doc, "tr") {
		var cells []*html.Node
		for c := row.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, c)
			}
		}
		if len(cells) < 2 {
			continue
		}
		label := strings.ToLower(textContent(cells[0]))
		value := textContent(cells[1])
		if strings.Contains(label, "gpa") || strings.Contains(label, "grade point") || strings.Contains(label, "point average") {
			if m := gpaLabelValue.FindString(value); m != "" && validGPA(m) {
				return m, true
			}
			continue
		}
		if m := gpaTwoDecimal.FindString(value); m != "" && validGPA(m) {
			return m, true
		}
	}

	text := textContent(doc)
	for _, pattern := range gpaInText {
		if m := pattern.FindStringSubmatch(text); m != nil && validGPA(m[1]) {
			return m[1], true
		}
	}
	return "", false
}
