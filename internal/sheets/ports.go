// Package sheets turns a couple's budget into a spreadsheet tab and defines
// the exporter port the worker and admin CLI push it through.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"roora/internal/core"
)

// BudgetExporter replaces the contents of a named sheet with rows.
type BudgetExporter interface {
	ExportBudget(ctx context.Context, sheet Sheet) (ref string, err error)
}

// Sheet is a fully rendered tab: a name and its cell values, row-major.
type Sheet struct {
	Name string
	Rows [][]any
}

var header = []any{
	"Event", "Supplier", "Category", "Status", "Notes", "Currency",
	"Amount", "Deposit required", "Deposit paid", "Outstanding", "Due date",
}

// SheetName is the tab a couple's budget is exported to.
func SheetName(coupleID string) string {
	if len(coupleID) > 8 {
		coupleID = coupleID[:8]
	}
	return "Budget " + coupleID
}

// BuildBudgetSheet renders one row per quote followed by a totals row in
// the couple's primary currency. Amounts are plain decimals so the sheet
// can sum them.
func BuildBudgetSheet(couple core.Couple, suppliers []core.SupplierWithQuotes) Sheet {
	rows := [][]any{header}
	for _, s := range suppliers {
		category := s.Category
		if category == "" {
			category = core.DefaultCategory
		}
		if len(s.Quotes) == 0 {
			rows = append(rows, []any{s.EventName, s.Name, category, s.Status.Label(), "", "", "", "", "", "", ""})
			continue
		}
		for _, q := range s.Quotes {
			due := ""
			if q.DueDate != nil {
				due = q.DueDate.Format("2006-01-02")
			}
			rows = append(rows, []any{
				s.EventName, s.Name, category, s.Status.Label(), q.Notes, string(q.Currency),
				q.Amount.Decimal(), q.DepositRequired.Decimal(), q.DepositPaid.Decimal(), q.OutstandingBalance.Decimal(), due,
			})
		}
	}

	sum := core.CalculateBudgetSummary(suppliers, couple.PrimaryCurrency)
	rows = append(rows,
		[]any{},
		[]any{"Total", "", "", "", "", string(sum.Currency),
			sum.TotalQuoted.Decimal(), sum.TotalDepositsRequired.Decimal(), sum.TotalDepositsPaid.Decimal(), sum.TotalOutstanding.Decimal(), ""},
	)
	if couple.TotalBudget.Cents > 0 {
		rows = append(rows, []any{"Planned budget", "", "", "", "", string(sum.Currency), couple.TotalBudget.Decimal(), "", "", "", ""})
	}
	return Sheet{Name: SheetName(couple.ID), Rows: rows}
}

// WriteTSV prints the sheet as tab-separated values.
func (s Sheet) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	for _, row := range s.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = fmt.Sprint(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
