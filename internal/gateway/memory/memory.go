// Package memory is an in-process show store. It backs tests and the
// default backend when no remote API or database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marquee/internal/core"
)

type showKey struct {
	venue    string
	showDate string
}

type Store struct {
	mu         sync.Mutex
	venues     []string
	shows      map[string][]core.Show
	breakdowns map[showKey]core.BreakdownPayload
	payments   map[showKey][]core.PaymentRecord
	recent     core.Selection
	nextID     int
}

func New() *Store {
	return &Store{
		shows:      make(map[string][]core.Show),
		breakdowns: make(map[showKey]core.BreakdownPayload),
		payments:   make(map[showKey][]core.PaymentRecord),
	}
}

// SeedVenue registers a venue and its shows.
func (s *Store) SeedVenue(venue string, shows ...core.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.venues {
		if v == venue {
			s.shows[venue] = append(s.shows[venue], shows...)
			return
		}
	}
	s.venues = append(s.venues, venue)
	s.shows[venue] = append(s.shows[venue], shows...)
}

// SeedBreakdown stores the raw financial payload for a show.
func (s *Store) SeedBreakdown(venue, showDate string, payload core.BreakdownPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakdowns[showKey{venue, showDate}] = payload
}

// SeedRecent marks a show as the most recently viewed one.
func (s *Store) SeedRecent(venue, showDate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = core.Selection{Venue: venue, ShowDate: showDate}
}

func (s *Store) Venues(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.venues...)
	sort.Strings(out)
	return out, nil
}

func (s *Store) Shows(_ context.Context, venue string) ([]core.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Show(nil), s.shows[venue]...), nil
}

func (s *Store) ShowBreakdown(_ context.Context, venue, showDate string) (core.BreakdownPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.breakdowns[showKey{venue, showDate}]
	if !ok {
		return core.BreakdownPayload{}, fmt.Errorf("no breakdown for %s on %s", venue, showDate)
	}
	return payload, nil
}

func (s *Store) PaymentRecords(_ context.Context, venue, showDate string) ([]core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PaymentRecord(nil), s.payments[showKey{venue, showDate}]...), nil
}

// SavePaymentRecords replaces the stored list and assigns identifiers to
// records that have none, mirroring the remote store's contract.
func (s *Store) SavePaymentRecords(_ context.Context, venue, showDate string, records []core.PaymentRecord) ([]core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]core.PaymentRecord, len(records))
	for i, r := range records {
		if r.ID == "" {
			s.nextID++
			r.ID = fmt.Sprintf("mem:%d", s.nextID)
		}
		stored[i] = r
	}
	s.payments[showKey{venue, showDate}] = stored
	s.recent = core.Selection{Venue: venue, ShowDate: showDate}

	return append([]core.PaymentRecord(nil), stored...), nil
}

func (s *Store) RecentSelection(_ context.Context) (core.Selection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recent.IsZero() {
		return core.Selection{}, false, nil
	}
	return s.recent, true, nil
}
