package core

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DateLayout is the display layout for calendar dates, e.g. "5 Jan 2026".
const DateLayout = "2 Jan 2006"

// FormatCurrency renders m with the currency symbol and two decimals,
// grouped according to the currency's locale. Negative amounts put the sign
// before the symbol. Units and cents are formatted as integers, so large
// amounts keep every digit.
func FormatCurrency(m Money, c Currency) string {
	sign := ""
	cents := uint64(m.Cents)
	if m.Cents < 0 {
		sign = "-"
		cents = -cents
	}
	p := message.NewPrinter(c.Locale())
	frac := strconv.FormatUint(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + c.Symbol() + p.Sprint(number.Decimal(cents/100)) + decimalSeparator(p) + frac
}

// decimalSeparator is whatever the printer puts between 1 and 5 in 1.5.
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}

// FormatDate renders an optional date; nil renders as an em dash.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	return t.Format(DateLayout)
}

// DaysUntil returns the whole days from now to t, rounded up.
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// FormatRelativeDate describes t relative to now: "3d overdue", "Today",
// "Tomorrow", "5d", "2w", or the plain date beyond a month.
func FormatRelativeDate(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	days := DaysUntil(*t, now)
	switch {
	case days < 0:
		return strconv.Itoa(-days) + "d overdue"
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days < 7:
		return strconv.Itoa(days) + "d"
	case days < 30:
		return strconv.Itoa(int(math.Ceil(float64(days)/7))) + "w"
	}
	return FormatDate(t)
}

// ParseDate parses an HTML date input value. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, invalid("date", ErrInvalidDate)
	}
	return &t, nil
}

// InputDate renders an optional date for an HTML date input.
func InputDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
