// Package memory records payout exports in memory. Used by worker
// tests and when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"marquee/internal/core"
	ports "marquee/internal/sheets"
)

type Export struct {
	Venue    string
	ShowDate string
	Records  []core.PaymentRecord
}

type Store struct {
	mu      sync.Mutex
	exports []Export
}

var _ ports.PayoutWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) ExportPayouts(_ context.Context, venue, showDate string, records []core.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, Export{
		Venue:    venue,
		ShowDate: showDate,
		Records:  append([]core.PaymentRecord(nil), records...),
	})
	return nil
}

// Exports returns a copy of everything exported so far.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}
