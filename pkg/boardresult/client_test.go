package boardresult

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landingPage = `<html><body>
<form action="result.php" method="post">
<input type="hidden" name="sr" value="3">
<input type="hidden" name="et" value="2">
<table>
<tr><td>Examination</td><td><select name="exam"><option value="ssc">SSC</option></select></td></tr>
<tr><td>Year</td><td><select name="year"><option>2021</option></select></td></tr>
<tr><td>Board</td><td><select name="board"><option>dhaka</option></select></td></tr>
<tr><td>Roll</td><td><input name="roll" type="text"></td></tr>
<tr><td>Reg</td><td><input name="reg" type="text"></td></tr>
<tr><td>8 + 9</td><td><input name="value_s" type="text"></td></tr>
</table>
</form></body></html>`

const resultPage = `<html><body><table>
<tr><td>Roll No</td><td>123456</td></tr>
<tr><td>GPA</td><td>5.00</td></tr>
</table></body></html>`

func TestSolveCaptcha(t *testing.T) {
	cases := map[string]int{"8 + 9": 17, "5 + 4 = ": 9, "10 - 3": 7, "6 * 7": 42, "9 / 2": 4}
	for input, want := range cases {
		got, ok := SolveCaptcha(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := SolveCaptcha("4 / 0")
	assert.False(t, ok)
	_, ok = SolveCaptcha("abc")
	assert.False(t, ok)
}

func TestParseGPAFromText(t *testing.T) {
	gpa, ok := ParseGPA(`<div class="result">Your GPA: 4.83</div>`)
	require.True(t, ok)
	assert.Equal(t, "4.83", gpa)

	_, ok = ParseGPA(`<div>No record found</div>`)
	assert.False(t, ok)
}

func TestLookupSubmitsSolvedCaptcha(t *testing.T) {
	var submitted map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(landingPage))
	})
	mux.HandleFunc("/result.php", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		submitted = map[string]string{}
		for key := range r.PostForm {
			submitted[key] = r.PostForm.Get(key)
		}
		_, _ = w.Write([]byte(resultPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second, nil)
	result := client.Lookup(context.Background(), Query{Examination: "SSC", Year: "2021", Board: "Technical", Roll: "123456", Registration: "999"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "5.00", result.GPA)
	assert.Equal(t, "17", submitted["value_s"])
	assert.Equal(t, "ssc", submitted["exam"])
	assert.Equal(t, "tec", submitted["board"])
	assert.Equal(t, "3", submitted["sr"])
}

func TestLookupReportsMissingForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>maintenance</body></html>`))
	}))
	defer srv.Close()

	result := NewClient(srv.URL, time.Second, nil).Lookup(context.Background(), Query{Examination: "HSC"})
	assert.False(t, result.Success)
	assert.Equal(t, "Could not find form on Education Board website", result.Error)
}
