package sheets

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"roora/internal/core"
)

func TestBuildBudgetSheet(t *testing.T) {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	couple := core.Couple{ID: "0123456789abcdef", PrimaryCurrency: core.ZAR, TotalBudget: core.Money{Cents: 20000000}}
	suppliers := []core.SupplierWithQuotes{
		{
			Supplier:  core.Supplier{ID: "s1", Name: "Venue", Category: "Venue", Status: core.SupplierBooked},
			EventName: "White wedding",
			Quotes: []core.Quote{{
				ID: "q1", Amount: core.Money{Cents: 5000000}, Currency: core.ZAR,
				DepositRequired: core.Money{Cents: 1000000}, DepositPaid: core.Money{Cents: 500000},
				OutstandingBalance: core.Money{Cents: 4500000}, DueDate: &due, Notes: "Hall A",
			}},
		},
		{
			Supplier:  core.Supplier{ID: "s2", Name: "DJ", Status: core.SupplierContacted},
			EventName: "White wedding",
		},
	}

	sheet := BuildBudgetSheet(couple, suppliers)
	if sheet.Name != "Budget 01234567" {
		t.Fatalf("name = %q", sheet.Name)
	}

	want := [][]any{
		header,
		{"White wedding", "Venue", "Venue", core.SupplierBooked.Label(), "Hall A", "ZAR", "50000.00", "10000.00", "5000.00", "45000.00", "2026-11-01"},
		{"White wedding", "DJ", "Other", core.SupplierContacted.Label(), "", "", "", "", "", "", ""},
		{},
		{"Total", "", "", "", "", "ZAR", "50000.00", "10000.00", "5000.00", "45000.00", ""},
		{"Planned budget", "", "", "", "", "ZAR", "200000.00", "", "", "", ""},
	}
	if diff := cmp.Diff(want, sheet.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	s := Sheet{Name: "x", Rows: [][]any{{"Event", "Amount"}, {"Lobola", "100.00"}}}
	if err := s.WriteTSV(&buf); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "Event\tAmount\nLobola\t100.00" {
		t.Fatalf("tsv = %q", got)
	}
}
