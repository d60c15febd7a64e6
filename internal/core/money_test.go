package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"25000", 2500000, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1 000", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseOptionalCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"", 0, true},
		{"   ", 0, true},
		{"0", 0, true},
		{"12.5", 1250, true},
		{"-3", 0, false},
		{"x", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseOptionalCents(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q: got %d err=%v, want %d ok=%v", tc.in, got, err, tc.out, tc.ok)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		123456:  "1234.56",
		-1250:   "-12.50",
		1000000: "10000.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).Decimal(); got != want {
			t.Fatalf("Decimal(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}
