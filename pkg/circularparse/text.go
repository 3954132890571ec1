package circularparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

var (
	sscGPA     = regexp.MustCompile(`(?i)\bSSC\b[^\n]{0,60}?GPA[^\d\n]{0,15}(\d(?:\.\d{1,2})?)`)
	hscGPA     = regexp.MustCompile(`(?i)\bHSC\b[^\n]{0,60}?GPA[^\d\n]{0,15}(\d(?:\.\d{1,2})?)`)
	totalGPA   = regexp.MustCompile(`(?i)\b(?:total|combined)\b[^\n]{0,30}?GPA[^\d\n]{0,15}(\d{1,2}(?:\.\d{1,2})?)`)
	yearToken  = regexp.MustCompile(`\b20\d{2}\b`)
	feeLine    = regexp.MustCompile(`(?i)application\s+fee[^\n\d]{0,30}([\d,]+(?:\s*(?:tk|taka|bdt))?)`)
	isoDate    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dmyDate    = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4})\b`)
	ageRange   = regexp.MustCompile(`(?i)\bage\b[^\n\d]{0,40}(\d{2})\s*(?:-|to)\s*(\d{2})`)
	examDate   = regexp.MustCompile(`(?i)\b(?:admission\s+test|exam(?:ination)?)\s+date[^\n\d]{0,15}([^\n]{4,40})`)
	summaryCap = 600
)

// ExtractFromText pulls requirements out of free text with line-level
// patterns. titleHint wins over the first line mentioning a university.
func ExtractFromText(titleHint, text string) *models.AdmissionCircularData {
	lines := splitLines(text)
	data := &models.AdmissionCircularData{UniversityName: universityName(titleHint, lines)}

	data.GeneralGpaRequirements.SSC = firstFloat(sscGPA, text)
	data.GeneralGpaRequirements.HSC = firstFloat(hscGPA, text)
	data.GeneralGpaRequirements.Total = firstFloat(totalGPA, text)

	years := &data.YearRequirements
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "year") && !strings.Contains(lower, "pass") {
			continue
		}
		found := yearToken.FindAllString(line, -1)
		if len(found) == 0 {
			continue
		}
		if strings.Contains(lower, "ssc") && years.SSCYears == nil {
			years.SSCYears = found
		} else if strings.Contains(lower, "hsc") && years.HSCYears == nil {
			years.HSCYears = found
		}
	}
	if m := feeLine.FindStringSubmatch(text); m != nil {
		fee := strings.TrimSpace(m[1])
		data.ApplicationFeeText = &fee
	}

	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "application") {
			continue
		}
		dates := findDates(line)
		if len(dates) >= 2 {
			data.ApplicationPeriod = models.ApplicationPeriod{Start: &dates[0], End: &dates[1]}
			break
		}
	}

	if m := ageRange.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		data.AgeLimitMin, data.AgeLimitMax = &lo, &hi
	}
	if m := examDate.FindStringSubmatch(text); m != nil {
		s := strings.TrimSpace(m[1])
		data.ExamDate = &s
	}

	summary := strings.Join(lines, "\n")
	if len(summary) > summaryCap {
		summary = summary[:summaryCap]
	}
	if summary != "" {
		data.RawSummary = &summary
	}
	return data
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.Join(strings.Fields(line), " "); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func universityName(hint string, lines []string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "university") && len(line) <= 120 {
			return line
		}
	}
	return ""
}

func firstFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}

// findDates returns dates in order of appearance as YYYY-MM-DD.
func findDates(line string) []string {
	type hit struct {
		pos  int
		date string
	}
	var hits []hit
	for _, loc := range isoDate.FindAllStringSubmatchIndex(line, -1) {
		hits = append(hits, hit{loc[0], line[loc[2]:loc[3]]})
	}
	for _, loc := range dmyDate.FindAllStringSubmatchIndex(line, -1) {
		day, _ := strconv.Atoi(line[loc[2]:loc[3]])
		month, _ := strconv.Atoi(line[loc[4]:loc[5]])
		year, _ := strconv.Atoi(line[loc[6]:loc[7]])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			continue
		}
		hits = append(hits, hit{loc[0], t.Format("2006-01-02")})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.date
	}
	return out
}
