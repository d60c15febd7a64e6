package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"roora/internal/core"
)

func formRequest(t *testing.T, values url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := parseForm(httptest.NewRecorder(), r); err != nil {
		t.Fatalf("parseForm: %v", err)
	}
	return r
}

func TestFormReaderValues(t *testing.T) {
	r := formRequest(t, url.Values{
		"name":     {"  Mama's Kitchen\x00 "},
		"amount":   {"1234,56"},
		"deposit":  {""},
		"due":      {"2026-09-12"},
		"done":     {"on"},
		"order":    {"3"},
		"unticked": {""},
	})
	f := newFormReader(r)

	if got := f.Text("name"); got != "Mama's Kitchen" {
		t.Errorf("Text = %q", got)
	}
	if got := f.Amount("amount"); got.Cents != 123456 {
		t.Errorf("Amount = %d", got.Cents)
	}
	if got := f.OptionalAmount("deposit"); got.Cents != 0 {
		t.Errorf("OptionalAmount = %d", got.Cents)
	}
	if got := f.Date("due"); got == nil || core.InputDate(got) != "2026-09-12" {
		t.Errorf("Date = %v", got)
	}
	if got := f.Date("missing"); got != nil {
		t.Errorf("missing date = %v", got)
	}
	if !f.Bool("done") || f.Bool("unticked") {
		t.Error("unexpected checkbox values")
	}
	if got := f.Int("order"); got != 3 {
		t.Errorf("Int = %d", got)
	}
	if err := f.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestFormReaderKeepsFirstError(t *testing.T) {
	r := formRequest(t, url.Values{"amount": {"-10"}, "due": {"12/09/2026"}})
	f := newFormReader(r)
	f.Amount("amount")
	f.Date("due")

	var ve *core.ValidationError
	if !errors.As(f.Err(), &ve) {
		t.Fatalf("Err = %v, want a validation error", f.Err())
	}
	if ve.Field != "amount" || !errors.Is(ve, core.ErrInvalidAmount) {
		t.Errorf("first error = %v", ve)
	}
}

func TestFormReaderRequiredAmount(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"100", false},
		{"0.5", false},
		{"", true},
		{"0", true},
		{"abc", true},
		{"1.2.3", true},
	}
	for _, tt := range tests {
		f := newFormReader(formRequest(t, url.Values{"amount": {tt.in}}))
		f.Amount("amount")
		if (f.Err() != nil) != tt.wantErr {
			t.Errorf("Amount(%q) err = %v, wantErr %v", tt.in, f.Err(), tt.wantErr)
		}
	}
}

func TestParseFormRejectsMalformedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=%zz"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := parseForm(httptest.NewRecorder(), r); !errors.Is(err, errMalformedForm) {
		t.Errorf("err = %v, want errMalformedForm", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not multipart"))
	r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	if err := parseForm(httptest.NewRecorder(), r); !errors.Is(err, errMalformedForm) {
		t.Errorf("multipart err = %v, want errMalformedForm", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  plain  ":      "plain",
		"line\nbreak":    "line\nbreak",
		"tab\there":      "tab\there",
		"bell\arang":     "bellrang",
		"\x1bescape\x7f": "escape\x7f",
		"":               "",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
