package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestQuoteValidate(t *testing.T) {
	good := Quote{Amount: Money{Cents: 10000}, Currency: ZAR, DepositRequired: Money{Cents: 5000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name string
		q    Quote
		want error
	}{
		{"zero amount", Quote{Amount: Money{}, Currency: ZAR}, ErrInvalidAmount},
		{"bad currency", Quote{Amount: Money{Cents: 1}, Currency: "XYZ"}, ErrInvalidCurrency},
		{"negative deposit", Quote{Amount: Money{Cents: 100}, Currency: ZAR, DepositRequired: Money{Cents: -1}}, ErrInvalidAmount},
		{"deposit over amount", Quote{Amount: Money{Cents: 100}, Currency: ZAR, DepositRequired: Money{Cents: 101}}, ErrDepositTooLarge},
	}
	for _, tc := range bads {
		err := tc.q.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
		if !IsValidation(err) {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestQuoteApplyPayments(t *testing.T) {
	q := Quote{Amount: Money{Cents: 10000}}
	q.ApplyPayments([]Payment{{Amount: Money{Cents: 2500}}, {Amount: Money{Cents: 1500}}})
	if q.DepositPaid.Cents != 4000 || q.OutstandingBalance.Cents != 6000 {
		t.Fatalf("unexpected quote after payments: paid=%d outstanding=%d", q.DepositPaid.Cents, q.OutstandingBalance.Cents)
	}

	// overpayment keeps the invariant and goes negative
	q.ApplyPayments([]Payment{{Amount: Money{Cents: 12000}}})
	if q.OutstandingBalance.Cents != -2000 {
		t.Fatalf("expected -2000 outstanding, got %d", q.OutstandingBalance.Cents)
	}

	q.ApplyPayments(nil)
	if q.DepositPaid.Cents != 0 || q.OutstandingBalance != q.Amount {
		t.Fatalf("expected full balance with no payments, got %+v", q)
	}
}

func TestEntityValidate(t *testing.T) {
	long := strings.Repeat("a", 201)
	cases := []struct {
		name string
		v    interface{ Validate() error }
		ok   bool
	}{
		{"couple ok", Couple{Name: "T & N", PrimaryCurrency: ZAR}, true},
		{"couple blank", Couple{Name: "  ", PrimaryCurrency: ZAR}, false},
		{"couple negative budget", Couple{Name: "x", PrimaryCurrency: ZAR, TotalBudget: Money{Cents: -1}}, false},
		{"event ok", Event{Name: "Lobola", Type: EventLobola, Currency: BWP}, true},
		{"event long name", Event{Name: long, Type: EventLobola, Currency: BWP}, false},
		{"event bad type", Event{Name: "x", Type: "party", Currency: ZAR}, false},
		{"supplier ok", Supplier{Name: "Venue Co", Status: SupplierResearching, Email: "hi@venue.co.za"}, true},
		{"supplier bad email", Supplier{Name: "Venue Co", Status: SupplierResearching, Email: "nope"}, false},
		{"supplier bad status", Supplier{Name: "Venue Co", Status: "maybe"}, false},
		{"payment ok", Payment{Amount: Money{Cents: 1}, Currency: USD, Method: PaymentCard}, true},
		{"payment bad method", Payment{Amount: Money{Cents: 1}, Currency: USD, Method: "cheque"}, false},
		{"task ok", Task{Title: "Book venue", Status: TaskPending}, true},
		{"task no title", Task{Status: TaskPending}, false},
		{"membership bad role", Membership{Role: "uncle"}, false},
	}
	for _, tc := range cases {
		err := tc.v.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: expected ok, got %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestCoupleNegativeBudgetMessage(t *testing.T) {
	err := Couple{Name: "x", PrimaryCurrency: ZAR, TotalBudget: Money{Cents: -100}}.Validate()
	if err == nil || err.Error() != "Budget must be a positive number" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: TaskPending}, false},
		{"due yesterday", Task{Status: TaskPending, DueDate: &yesterday}, true},
		{"due today", Task{Status: TaskInProgress, DueDate: &earlierToday}, false},
		{"completed", Task{Status: TaskCompleted, DueDate: &yesterday}, false},
	}
	for _, tc := range cases {
		if got := tc.task.IsOverdue(now); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLabels(t *testing.T) {
	if EventKurovaGuva.Label() != "Kurova Guva" {
		t.Fatalf("unexpected label %q", EventKurovaGuva.Label())
	}
	if EventType("custom").Label() != "custom" {
		t.Fatalf("unknown types should render raw")
	}
	if SupplierNegotiating.Label() != "Negotiating" || TaskInProgress.Label() != "In progress" {
		t.Fatalf("unexpected status labels")
	}
	if PaymentMobileMoney.Label() != "Mobile money" {
		t.Fatalf("unexpected method label")
	}
}
