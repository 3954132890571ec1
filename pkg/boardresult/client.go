package boardresult

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the public SSC/HSC result site.
const DefaultBaseURL = "http://www.educationboardresults.gov.bd/"

var boardValues = map[string]string{
	"chittagong":   "chittagong",
	"dhaka":        "dhaka",
	"rajshahi":     "rajshahi",
	"comilla":      "comilla",
	"jessore":      "jessore",
	"barisal":      "barisal",
	"sylhet":       "sylhet",
	"dinajpur":     "dinajpur",
	"mymensingh":   "mymensingh",
	"madrasah":     "madrasah",
	"technical":    "tec",
	"dibs (dhaka)": "dibs",
}

// Query identifies one examination result.
type Query struct {
	Examination  string
	Year         string
	Board        string
	Roll         string
	Registration string
}

// Result is the outcome of a lookup. Failures are reported in Error rather
// than as a Go error so callers can return them to students verbatim.
type Result struct {
	Success bool
	GPA     string
	Error   string
}

// Client scrapes the education board result site.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient constructs a Client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, timeout: timeout, logger: logger}
}

func failure(format string, args ...interface{}) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Lookup loads the form, solves its captcha, submits the query and parses the GPA.
func (c *Client) Lookup(ctx context.Context, q Query) Result {
	jar, _ := cookiejar.New(nil)
	httpClient := &http.Client{Timeout: c.timeout, Jar: jar}

	landing, status, err := c.do(ctx, httpClient, http.MethodGet, c.baseURL, nil)
	if err != nil {
		c.logger.Warn("board result site unreachable", zap.Error(err))
		return failure("Error connecting to Education Board website: %v", err)
	}
	if status != http.StatusOK {
		return failure("Failed to load Education Board website: %d", status)
	}

	doc, err := html.Parse(strings.NewReader(landing))
	if err != nil {
		return failure("Could not parse Education Board website")
	}
	f, ok := extractForm(doc)
	if !ok {
		return failure("Could not find form on Education Board website")
	}

	values := url.Values{}
	for name, value := range f.fields {
		values.Set(name, value)
	}
	if f.names["exam"] {
		values.Set("exam", strings.ToLower(q.Examination))
	}
	if f.names["year"] {
		values.Set("year", q.Year)
	}
	if f.names["board"] {
		board := strings.ToLower(q.Board)
		if mapped, ok := boardValues[board]; ok {
			board = mapped
		}
		values.Set("board", board)
	}
	if f.names["roll"] {
		values.Set("roll", q.Roll)
	}
	if f.names["reg"] {
		values.Set("reg", q.Registration)
	}
	if f.names["value_s"] {
		text, found := extractCaptcha(doc)
		if !found {
			return failure("Could not solve CAPTCHA. Please try again.")
		}
		answer, solved := SolveCaptcha(text)
		if !solved {
			return failure("Could not solve CAPTCHA. Please try again.")
		}
		values.Set("value_s", strconv.Itoa(answer))
	}

	var missing []string
	for _, field := range []string{"exam", "year", "board", "roll", "reg", "value_s"} {
		if values.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return failure("Missing required form fields: %s", strings.Join(missing, ", "))
	}

	action, err := c.resolve(f.action)
	if err != nil {
		return failure("Invalid form action on Education Board website")
	}
	page, status, err := c.do(ctx, httpClient, http.MethodPost, action, values)
	if err != nil {
		return failure("Error connecting to Education Board website: %v", err)
	}
	if status != http.StatusOK {
		return failure("Failed to submit form: %d", status)
	}

	gpa, ok := ParseGPA(page)
	if !ok {
		return failure("Could not find result. Please verify your roll, registration, board and year.")
	}
	return Result{Success: true, GPA: gpa}
}

func (c *Client) resolve(action string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if action == "" {
		action = "result.php"
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, target string, form url.Values) (string, int, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", 0, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", c.baseURL)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(raw), resp.StatusCode, nil
}
