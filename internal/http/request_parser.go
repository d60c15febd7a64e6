package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roora/internal/core"
	"roora/internal/services"
)

// errMalformedForm marks bodies that could not be parsed at all.
var errMalformedForm = errors.New("malformed form")

// parseForm parses url-encoded and multipart bodies. Multipart bodies are
// capped slightly above the upload limit.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+1<<20)
		if err := r.ParseMultipartForm(services.MaxUploadSize + 1<<20); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return &core.ValidationError{Field: "file", Err: services.ErrFileTooLarge}
			}
			return errMalformedForm
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errMalformedForm
	}
	return nil
}

// formReader reads typed values out of a parsed form and keeps the first
// conversion error.
type formReader struct {
	values url.Values
	err    error
}

func newFormReader(r *http.Request) *formReader {
	return &formReader{values: r.Form}
}

// Text returns the trimmed value with control characters removed.
func (f *formReader) Text(key string) string {
	return sanitizeInput(f.values.Get(key))
}

// Amount parses a required positive decimal amount.
func (f *formReader) Amount(key string) core.Money {
	cents, err := core.ParseDecimalToCents(f.values.Get(key))
	if err != nil {
		f.fail(key, err)
	}
	return core.Money{Cents: cents}
}

// OptionalAmount parses a decimal amount where empty means zero.
func (f *formReader) OptionalAmount(key string) core.Money {
	cents, err := core.ParseOptionalCents(f.values.Get(key))
	if err != nil {
		f.fail(key, err)
	}
	return core.Money{Cents: cents}
}

// Date parses an HTML date input; empty yields nil.
func (f *formReader) Date(key string) *time.Time {
	d, err := core.ParseDate(strings.TrimSpace(f.values.Get(key)))
	if err != nil {
		f.fail(key, core.ErrInvalidDate)
		return nil
	}
	return d
}

// Bool reads a checkbox.
func (f *formReader) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(f.values.Get(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (f *formReader) Int(key string) int {
	v := strings.TrimSpace(f.values.Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.fail(key, errors.New("must be a whole number"))
	}
	return n
}

func (f *formReader) fail(field string, err error) {
	if f.err == nil {
		f.err = &core.ValidationError{Field: field, Err: err}
	}
}

// Err returns the first conversion error as a validation error.
func (f *formReader) Err() error { return f.err }

// sanitizeInput trims and removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
