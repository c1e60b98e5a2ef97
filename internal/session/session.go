// Package session tracks which venue and show the operator is looking at
// and coordinates loads between the remote gateway, the revenue
// calculator, and the payment ledger. Each user action is an explicit
// state transition, callable without any presentation layer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marquee/internal/core"
	"marquee/internal/gateway"
	"marquee/internal/ledger"
	"marquee/internal/reconcile"
)

// Gateway is the slice of the remote store the session consumes.
type Gateway interface {
	gateway.VenueDirectory
	gateway.ShowLister
	gateway.BreakdownReader
	gateway.RecentReader
}

// ErrBusy is returned when a load for the same resource is already
// outstanding. The redundant request is dropped, not queued.
var ErrBusy = errors.New("load already in progress")

// Session owns the current selection and the last loaded breakdown.
type Session struct {
	gw     Gateway
	calc   *reconcile.Calculator
	ledger *ledger.Ledger
	now    func() time.Time

	mu            sync.Mutex
	selected      core.Selection
	breakdown     *core.RevenueBreakdown
	busyVenues    bool
	busyShows     bool
	busyBreakdown bool
}

func New(gw Gateway, calc *reconcile.Calculator, lg *ledger.Ledger) *Session {
	return &Session{gw: gw, calc: calc, ledger: lg, now: time.Now}
}

// Selected returns the current selection.
func (s *Session) Selected() core.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Breakdown returns the last loaded breakdown, if any.
func (s *Session) Breakdown() (core.RevenueBreakdown, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.breakdown == nil {
		return core.RevenueBreakdown{}, false
	}
	return *s.breakdown, true
}

// Ledger exposes the payment ledger scoped to the current show.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Venues lists available venues. A second call while one is outstanding
// is dropped with ErrBusy.
func (s *Session) Venues(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.busyVenues {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busyVenues = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busyVenues = false
		s.mu.Unlock()
	}()

	venues, err := s.gw.Venues(ctx)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	return venues, nil
}

// SelectVenue switches the active venue: the show selection and displayed
// breakdown are cleared, the venue's shows are loaded, and unless
// skipAutoSelect is set the show nearest to today is selected, driving
// the usual breakdown and ledger loads.
func (s *Session) SelectVenue(ctx context.Context, venue string, skipAutoSelect bool) ([]core.Show, error) {
	s.mu.Lock()
	if s.busyShows {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busyShows = true
	s.selected = core.Selection{Venue: venue}
	s.breakdown = nil
	s.mu.Unlock()

	shows, err := s.gw.Shows(ctx, venue)

	s.mu.Lock()
	s.busyShows = false
	if s.selected.Venue != venue {
		// Selection moved on while loading; this response is stale.
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("load shows for %s: %w", venue, err)
	}

	if !skipAutoSelect {
		if nearest, ok := NearestShow(shows, s.now()); ok {
			if _, err := s.SelectShow(ctx, venue, nearest.ShowDate); err != nil && !errors.Is(err, ErrBusy) {
				slog.WarnContext(ctx, "Auto-selected show failed to load",
					"venue", venue, "show_date", nearest.ShowDate, "error", err)
			}
		}
	}
	return shows, nil
}

// SelectShow loads and reconciles the breakdown for a show and then loads
// the payment ledger for the same key. The previous show's ledger is
// replaced wholesale; unsaved edits never leak across shows.
func (s *Session) SelectShow(ctx context.Context, venue, showDate string) (core.RevenueBreakdown, error) {
	s.mu.Lock()
	if s.busyBreakdown {
		s.mu.Unlock()
		return core.RevenueBreakdown{}, ErrBusy
	}
	s.busyBreakdown = true
	sel := core.Selection{Venue: venue, ShowDate: showDate}
	s.selected = sel
	s.mu.Unlock()

	payload, err := s.gw.ShowBreakdown(ctx, venue, showDate)

	s.mu.Lock()
	s.busyBreakdown = false
	stale := s.selected != sel
	s.mu.Unlock()
	if stale {
		return core.RevenueBreakdown{}, nil
	}
	if err != nil {
		return core.RevenueBreakdown{}, fmt.Errorf("load breakdown for %s on %s: %w", venue, showDate, err)
	}

	breakdown, err := s.calc.Breakdown(payload)
	if err != nil {
		return core.RevenueBreakdown{}, err
	}

	s.mu.Lock()
	if s.selected != sel {
		s.mu.Unlock()
		return core.RevenueBreakdown{}, nil
	}
	s.breakdown = &breakdown
	s.mu.Unlock()

	if err := s.ledger.Load(ctx, venue, showDate); err != nil {
		// Breakdown stays displayed; the ledger degraded to empty.
		return breakdown, err
	}
	return breakdown, nil
}

// Resume restores the most recently viewed show, if the store remembers
// one, driving the same load path as a manual selection. The nearest-date
// heuristic is skipped because the exact show is already known.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	recent, ok, err := s.gw.RecentSelection(ctx)
	if err != nil {
		return false, fmt.Errorf("load recent selection: %w", err)
	}
	if !ok {
		return false, nil
	}

	if _, err := s.SelectVenue(ctx, recent.Venue, true); err != nil {
		return false, err
	}
	if _, err := s.SelectShow(ctx, recent.Venue, recent.ShowDate); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "Resumed most recent show",
		"venue", recent.Venue, "show_date", recent.ShowDate)
	return true, nil
}

// NearestShow picks the show whose date is closest to today, comparing
// whole days and ignoring time-of-day. Ties go to the first encountered
// (strict less-than).
func NearestShow(shows []core.Show, today time.Time) (core.Show, bool) {
	if len(shows) == 0 {
		return core.Show{}, false
	}

	todayDay := truncateToDay(today)
	var nearest core.Show
	found := false
	best := 0

	for _, show := range shows {
		diff := daysApart(truncateToDay(show.ShowDatetime), todayDay)
		if !found || diff < best {
			nearest = show
			best = diff
			found = true
		}
	}
	return nearest, found
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysApart(a, b time.Time) int {
	diff := int(a.Sub(b).Hours() / 24)
	if diff < 0 {
		return -diff
	}
	return diff
}
