package boardresult

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	captchaPattern  = regexp.MustCompile(`^\d+\s*[+\-*/]\s*\d+$`)
	captchaOperands = regexp.MustCompile(`(\d+)\s*([+\-*/])\s*(\d+)`)
)

// SolveCaptcha evaluates the site's arithmetic captcha, e.g. "8 + 9" or
// "5 + 4 = ". Division is integer division; division by zero is unsolvable.
func SolveCaptcha(text string) (int, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "=", ""))
	m := captchaOperands.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	a, errA := strconv.Atoi(m[1])
	b, errB := strconv.Atoi(m[3])
	if errA != nil || errB != nil {
		return 0, false
	}
	switch m[2] {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "/":
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

func isCaptchaText(text string) bool {
	return captchaPattern.MatchString(strings.TrimSpace(text))
}
