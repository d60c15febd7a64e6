package core

import (
	"math"
	"sort"
	"time"
)

// BudgetSummary totals the quotes of a set of suppliers.
type BudgetSummary struct {
	TotalQuoted           Money
	TotalDepositsRequired Money
	TotalDepositsPaid     Money
	TotalOutstanding      Money
	TotalPayments         Money
	Currency              Currency
	SupplierCount         int
	BookedCount           int
}

// EventBudgetSummary is a BudgetSummary scoped to one event, in the event's
// own currency.
type EventBudgetSummary struct {
	BudgetSummary
	EventID   string
	EventName string
	EventType EventType
	Planned   Money
	Percent   int
}

// CategoryBudget is one row of the per-category breakdown.
type CategoryBudget struct {
	Name    string
	Quoted  Money
	Paid    Money
	Percent int
}

// UpcomingPayment is an outstanding quote balance with a due date.
type UpcomingPayment struct {
	SupplierID   string
	SupplierName string
	QuoteID      string
	Amount       Money
	Currency     Currency
	DueDate      time.Time
}

// CalculateBudgetSummary sums amounts, deposits and balances over every
// quote of every supplier. TotalPayments mirrors TotalDepositsPaid since
// deposit_paid is the running sum of a quote's payments.
func CalculateBudgetSummary(suppliers []SupplierWithQuotes, currency Currency) BudgetSummary {
	sum := BudgetSummary{Currency: currency, SupplierCount: len(suppliers)}
	for _, s := range suppliers {
		if s.Status == SupplierBooked {
			sum.BookedCount++
		}
		for _, q := range s.Quotes {
			sum.TotalQuoted = sum.TotalQuoted.Add(q.Amount)
			sum.TotalDepositsRequired = sum.TotalDepositsRequired.Add(q.DepositRequired)
			sum.TotalDepositsPaid = sum.TotalDepositsPaid.Add(q.DepositPaid)
			sum.TotalOutstanding = sum.TotalOutstanding.Add(q.OutstandingBalance)
			sum.TotalPayments = sum.TotalPayments.Add(q.DepositPaid)
		}
	}
	return sum
}

// CalculateEventBudgets returns one summary per event, in event order.
func CalculateEventBudgets(events []Event, suppliers []SupplierWithQuotes) []EventBudgetSummary {
	byEvent := make(map[string][]SupplierWithQuotes, len(events))
	for _, s := range suppliers {
		byEvent[s.EventID] = append(byEvent[s.EventID], s)
	}
	out := make([]EventBudgetSummary, 0, len(events))
	for _, e := range events {
		sum := CalculateBudgetSummary(byEvent[e.ID], e.Currency)
		out = append(out, EventBudgetSummary{
			BudgetSummary: sum,
			EventID:       e.ID,
			EventName:     e.Name,
			EventType:     e.Type,
			Planned:       e.Budget,
			Percent:       CalculateUtilization(sum.TotalQuoted, sum.TotalDepositsPaid),
		})
	}
	return out
}

// CalculateUtilization returns paid as a rounded percentage of quoted, or 0
// when nothing is quoted.
func CalculateUtilization(quoted, paid Money) int {
	return percent(paid.Cents, quoted.Cents)
}

// percent rounds half up, matching how the figures are shown in the UI.
func percent(part, whole int64) int {
	if whole == 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(whole) + 0.5))
}

// CategoryBreakdown groups quotes by supplier category. Suppliers without a
// category count as "Other". Rows are sorted by quoted amount, largest
// first, then by name.
func CategoryBreakdown(suppliers []SupplierWithQuotes) []CategoryBudget {
	idx := map[string]int{}
	var rows []CategoryBudget
	for _, s := range suppliers {
		name := s.Category
		if name == "" {
			name = DefaultCategory
		}
		i, ok := idx[name]
		if !ok {
			i = len(rows)
			idx[name] = i
			rows = append(rows, CategoryBudget{Name: name})
		}
		for _, q := range s.Quotes {
			rows[i].Quoted = rows[i].Quoted.Add(q.Amount)
			rows[i].Paid = rows[i].Paid.Add(q.DepositPaid)
		}
	}
	for i := range rows {
		rows[i].Percent = percent(rows[i].Paid.Cents, rows[i].Quoted.Cents)
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Quoted.Cents != rows[b].Quoted.Cents {
			return rows[a].Quoted.Cents > rows[b].Quoted.Cents
		}
		return rows[a].Name < rows[b].Name
	})
	return rows
}

// UpcomingPayments lists quotes with a due date and a positive balance,
// soonest first, capped at limit (no cap when limit <= 0).
func UpcomingPayments(suppliers []SupplierWithQuotes, limit int) []UpcomingPayment {
	var out []UpcomingPayment
	for _, s := range suppliers {
		for _, q := range s.Quotes {
			if q.DueDate == nil || q.OutstandingBalance.Cents <= 0 {
				continue
			}
			out = append(out, UpcomingPayment{
				SupplierID:   s.ID,
				SupplierName: s.Name,
				QuoteID:      q.ID,
				Amount:       q.OutstandingBalance,
				Currency:     q.Currency,
				DueDate:      *q.DueDate,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NextEvent returns the first dated event strictly after now. Events are
// expected in date order, as storage lists them.
func NextEvent(events []Event, now time.Time) (Event, bool) {
	for _, e := range events {
		if e.Date != nil && e.Date.After(now) {
			return e, true
		}
	}
	return Event{}, false
}

// BudgetOverview is the read model behind the budget page.
type BudgetOverview struct {
	Currency         Currency
	TotalBudget      Money
	Committed        Money
	Paid             Money
	Remaining        Money
	Outstanding      Money
	CommittedPercent int
	PaidPercent      int
	RemainingPercent int
	Planned          Money
	PlannedRemaining Money
	Categories       []CategoryBudget
	Events           []EventBudgetSummary
}

// HasPlanned reports whether the couple set an overall budget target.
func (o BudgetOverview) HasPlanned() bool { return o.Planned.Cents > 0 }

// CommittedOnlyPercent is the committed share not yet paid, for the
// stacked health bar.
func (o BudgetOverview) CommittedOnlyPercent() int {
	if v := o.CommittedPercent - o.PaidPercent; v > 0 {
		return v
	}
	return 0
}

// NewBudgetOverview derives the budget page figures. The "budget" is the sum
// of all quotes; committed is the sum of required deposits; remaining is
// budget minus committed.
func NewBudgetOverview(couple Couple, events []Event, suppliers []SupplierWithQuotes) BudgetOverview {
	sum := CalculateBudgetSummary(suppliers, couple.PrimaryCurrency)
	o := BudgetOverview{
		Currency:    couple.PrimaryCurrency,
		TotalBudget: sum.TotalQuoted,
		Committed:   sum.TotalDepositsRequired,
		Paid:        sum.TotalDepositsPaid,
		Outstanding: sum.TotalQuoted.Sub(sum.TotalDepositsPaid),
		Planned:     couple.TotalBudget,
		Categories:  CategoryBreakdown(suppliers),
		Events:      CalculateEventBudgets(events, suppliers),
	}
	o.Remaining = o.TotalBudget.Sub(o.Committed)
	o.CommittedPercent = percent(o.Committed.Cents, o.TotalBudget.Cents)
	o.PaidPercent = percent(o.Paid.Cents, o.TotalBudget.Cents)
	o.RemainingPercent = percent(o.Remaining.Cents, o.TotalBudget.Cents)
	if o.HasPlanned() {
		o.PlannedRemaining = o.Planned.Sub(o.TotalBudget)
	}
	return o
}

// StatusCount is the number of suppliers in one pipeline status.
type StatusCount struct {
	Status SupplierStatus
	Count  int
}

// DashboardStats is the read model behind the dashboard.
type DashboardStats struct {
	Currency         Currency
	Summary          BudgetSummary
	Booked           Money
	Utilization      int
	StatusCounts     []StatusCount
	PendingTasks     int
	OverdueTasks     int
	Upcoming         []UpcomingPayment
	NextEvent        *Event
	DaysUntil        int
	Events           []EventBudgetSummary
	RecentActivities []Activity
}

// NewDashboardStats derives the dashboard figures at instant now.
func NewDashboardStats(couple Couple, events []Event, suppliers []SupplierWithQuotes, tasks []TaskWithEvent, now time.Time) DashboardStats {
	sum := CalculateBudgetSummary(suppliers, couple.PrimaryCurrency)
	st := DashboardStats{
		Currency:    couple.PrimaryCurrency,
		Summary:     sum,
		Utilization: CalculateUtilization(sum.TotalQuoted, sum.TotalDepositsPaid),
		Upcoming:    UpcomingPayments(suppliers, 5),
		Events:      CalculateEventBudgets(events, suppliers),
	}
	if sum.TotalDepositsPaid.Cents > 0 {
		st.Booked = sum.TotalQuoted.Sub(sum.TotalOutstanding)
	}

	counts := map[SupplierStatus]int{}
	for _, s := range suppliers {
		counts[s.Status]++
	}
	for _, status := range SupplierStatuses {
		if n := counts[status]; n > 0 {
			st.StatusCounts = append(st.StatusCounts, StatusCount{Status: status, Count: n})
		}
	}

	for _, t := range tasks {
		if t.Status != TaskCompleted {
			st.PendingTasks++
		}
		if t.IsOverdue(now) {
			st.OverdueTasks++
		}
	}

	if e, ok := NextEvent(events, now); ok {
		st.NextEvent = &e
		st.DaysUntil = DaysUntil(*e.Date, now)
	}
	return st
}
