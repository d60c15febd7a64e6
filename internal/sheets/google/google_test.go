package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	ports "roora/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets records the calls the client makes against the REST API.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     []string
	calls    []string
	lastBody map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, t := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update:"+r.URL.Query().Get("valueInputOption"))
		f.lastBody = map[string]any{}
		json.NewDecoder(r.Body).Decode(&f.lastBody)
		io.WriteString(w, `{"updatedRange":"'Budget c1'!A1:K4"}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-1")
}

func TestExportBudgetCreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	sheet := ports.Sheet{Name: "Budget c1", Rows: [][]any{{"Event", "Supplier"}, {"White wedding", "Venue"}}}
	ref, err := c.ExportBudget(context.Background(), sheet)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref != "'Budget c1'!A1:K4" {
		t.Fatalf("ref = %q", ref)
	}

	want := []string{"get", "batchUpdate", "clear", "update:USER_ENTERED"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	values, _ := fake.lastBody["values"].([]any)
	if len(values) != 2 {
		t.Fatalf("expected 2 rows written, got %v", fake.lastBody)
	}
}

func TestExportBudgetReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Budget c1"}}
	c := newTestClient(t, fake)

	if _, err := c.ExportBudget(context.Background(), ports.Sheet{Name: "Budget c1", Rows: [][]any{{"x"}}}); err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, call := range fake.calls {
		if call == "batchUpdate" {
			t.Fatal("existing tab should not be re-created")
		}
	}
}

func TestExportBudgetValidation(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-1"}
	if _, err := c.ExportBudget(context.Background(), ports.Sheet{Name: "x"}); err == nil {
		t.Fatal("expected error without a service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), "  ", Credentials{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := New(context.Background(), "sheet-1", Credentials{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = New(context.Background(), "sheet-1", Credentials{File: "/does/not/exist.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("Thandi's budget"); got != "'Thandi''s budget'" {
		t.Fatalf("quoteTab = %q", got)
	}
}
