// Package memory keeps exported summaries in process. It backs the
// "memory" export backend and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.SummaryStore = (*Store)(nil)

type Store struct {
	mu        sync.Mutex
	summaries map[string]core.MonthlySummary
	writes    int
}

func New() *Store {
	return &Store{summaries: make(map[string]core.MonthlySummary)}
}

// WriteSummary stores a copy of s and returns a synthetic reference.
func (s *Store) WriteSummary(_ context.Context, sum core.MonthlySummary) (string, error) {
	if _, err := core.ParseMonth(sum.Month); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	sum.ByCategory = append([]core.CategoryLine(nil), sum.ByCategory...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.Month] = sum
	s.writes++
	return fmt.Sprintf("mem:%s#%d", sum.Month, s.writes), nil
}

func (s *Store) ReadSummary(_ context.Context, month string) (core.MonthlySummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[month]
	if !ok {
		return core.MonthlySummary{}, false, nil
	}
	sum.ByCategory = append([]core.CategoryLine(nil), sum.ByCategory...)
	return sum, true, nil
}

// Months lists exported months in ascending order.
func (s *Store) Months() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.summaries))
	for m := range s.summaries {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Writes counts successful writes, including overwrites.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
