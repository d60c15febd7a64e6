// Package memory is an in-process BudgetExporter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "roora/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	sheets  map[string]ports.Sheet
	exports int
}

var _ ports.BudgetExporter = (*Store)(nil)

func New() *Store {
	return &Store{sheets: map[string]ports.Sheet{}}
}

// ExportBudget keeps a copy of the sheet and returns a synthetic reference.
func (s *Store) ExportBudget(_ context.Context, sheet ports.Sheet) (string, error) {
	if sheet.Name == "" {
		return "", errors.New("sheet name is required")
	}
	rows := make([][]any, len(sheet.Rows))
	for i, r := range sheet.Rows {
		rows[i] = append([]any(nil), r...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet.Name] = ports.Sheet{Name: sheet.Name, Rows: rows}
	s.exports++
	return fmt.Sprintf("mem:%s:%d", sheet.Name, s.exports), nil
}

// Sheet returns the last export for name.
func (s *Store) Sheet(name string) (ports.Sheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[name]
	return sh, ok
}

// Exports counts ExportBudget calls.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
