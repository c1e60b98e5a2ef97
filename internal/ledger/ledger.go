// Package ledger keeps the performer-payment table of the selected show
// converged with the remote store while the operator edits it. Rapid
// edits are coalesced by a trailing debounce; payment-status flips and
// structural changes persist immediately; at most one save is in flight
// at any time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/core"
	"marquee/internal/gateway"
)

// Field names an editable column of a payment record.
type Field string

const (
	FieldName        Field = "name"
	FieldAmount      Field = "amount"
	FieldPayeeHandle Field = "payee_handle"
	FieldPaid        Field = "paid"
	FieldNotes       Field = "notes"
)

var (
	ErrLoadFailed   = errors.New("payment records load failed")
	ErrIndexRange   = errors.New("record index out of range")
	ErrUnknownField = errors.New("unknown record field")
	ErrWrongType    = errors.New("wrong value type for field")
	ErrNoActiveShow = errors.New("no show selected")
)

const (
	defaultDebounce    = 1500 * time.Millisecond
	defaultStatusHold  = 2 * time.Second
	defaultSaveTimeout = 15 * time.Second
)

// SavedHook is invoked after every successful persist with the show key
// and the reconciled records.
type SavedHook func(ctx context.Context, sel core.Selection, records []core.PaymentRecord)

// Option configures a Ledger.
type Option func(*Ledger)

// WithDebounce overrides the quiet window for non-critical field edits.
func WithDebounce(d time.Duration) Option {
	return func(l *Ledger) { l.debounce = d }
}

// WithStatusHold overrides how long Saved/Failed stay visible before
// reverting to Idle.
func WithStatusHold(d time.Duration) Option {
	return func(l *Ledger) { l.statusHold = d }
}

// WithSaveTimeout overrides the per-persist transport timeout.
func WithSaveTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.saveTimeout = d }
}

// WithSavedHook registers a hook run after each successful persist.
func WithSavedHook(hook SavedHook) Option {
	return func(l *Ledger) { l.savedHook = hook }
}

// Ledger owns the in-memory payment records for one show at a time.
type Ledger struct {
	store       gateway.PaymentStore
	debounce    time.Duration
	statusHold  time.Duration
	saveTimeout time.Duration
	savedHook   SavedHook

	mu          sync.Mutex
	sel         core.Selection
	records     []core.PaymentRecord
	status      core.SaveStatus
	statusTimer *time.Timer
	debTimer    *time.Timer
	saving      bool // in-flight guard, separate from the display status
	pending     bool // a persist was requested while one was in flight
	dirty       bool // records mutated since the in-flight snapshot was taken
	gen         int  // bumped on Load so stale persist results are dropped
}

func New(store gateway.PaymentStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		debounce:    defaultDebounce,
		statusHold:  defaultStatusHold,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the ledger contents with the store's records for the
// given show. On failure the ledger is cleared to an empty, usable list
// and the error is surfaced; stale records from another show are never
// shown.
func (l *Ledger) Load(ctx context.Context, venue, showDate string) error {
	l.mu.Lock()
	l.stopDebounce()
	l.sel = core.Selection{Venue: venue, ShowDate: showDate}
	l.records = nil
	l.pending = false
	l.dirty = false
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	records, err := l.store.PaymentRecords(ctx, venue, showDate)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// Selection changed while loading; drop the result.
		return nil
	}
	if err != nil {
		l.records = nil
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	l.records = records
	return nil
}

// Add appends a fresh record and persists immediately.
func (l *Ledger) Add() core.PaymentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := core.DefaultPaymentRecord()
	l.records = append(l.records, record)
	l.dirty = true
	l.schedule(true)
	return record
}

// UpdateField mutates one field of the record at index. A paid flip
// persists immediately; all other fields ride the debounce window.
func (l *Ledger) UpdateField(index int, field Field, value any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d", ErrIndexRange, index)
	}

	record := &l.records[index]
	immediate := false

	switch field {
	case FieldName:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants string", ErrWrongType, field)
		}
		record.Name = s
	case FieldAmount:
		amount, ok := value.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("%w: %s wants decimal", ErrWrongType, field)
		}
		if amount.IsNegative() {
			return core.ErrNegativeAmount
		}
		record.Amount = amount
	case FieldPayeeHandle:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants string", ErrWrongType, field)
		}
		record.PayeeHandle = core.NormalizeHandle(s)
	case FieldPaid:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants bool", ErrWrongType, field)
		}
		record.Paid = b
		immediate = true
	case FieldNotes:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants string", ErrWrongType, field)
		}
		record.Notes = s
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	l.dirty = true
	l.schedule(immediate)
	return nil
}

// Remove deletes the record at index. The remainder keeps its relative
// order; positional identity is simply the new slice index.
func (l *Ledger) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	l.records = append(l.records[:index], l.records[index+1:]...)
	l.dirty = true
	l.schedule(true)
	return nil
}

// Records returns a copy of the current list for display.
func (l *Ledger) Records() []core.PaymentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.PaymentRecord(nil), l.records...)
}

// Total sums all record amounts. It reflects local edits instantly,
// regardless of persistence state.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, r := range l.records {
		total = total.Add(r.Amount)
	}
	return total
}

// Status returns the display-only save indicator.
func (l *Ledger) Status() core.SaveStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Flush persists now if edits are unsaved, cancelling any pending
// debounce. Used by callers that must not leave edits behind (teardown).
func (l *Ledger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dirty || l.debTimer != nil {
		l.schedule(true)
	}
}

// Close stops the ledger's timers. It does not flush.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopDebounce()
	if l.statusTimer != nil {
		l.statusTimer.Stop()
		l.statusTimer = nil
	}
}

// schedule arms persistence. Immediate cancels any pending debounce so a
// trailing duplicate save cannot fire; debounced resets the quiet window.
// Callers hold l.mu.
func (l *Ledger) schedule(immediate bool) {
	if l.sel.IsZero() {
		return
	}
	l.stopDebounce()
	if immediate {
		l.kick()
		return
	}
	l.debTimer = time.AfterFunc(l.debounce, l.debounceFired)
}

func (l *Ledger) debounceFired() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debTimer = nil
	l.kick()
}

// kick starts a persist, or marks one pending if a save is already in
// flight. The pending persist is issued after the current one resolves
// and snapshots the then-latest state, so an earlier response can never
// clobber a later edit. Callers hold l.mu.
func (l *Ledger) kick() {
	if l.saving {
		l.pending = true
		return
	}
	l.saving = true
	l.dirty = false
	l.setStatus(core.StatusSaving, false)

	snapshot := make([]core.PaymentRecord, 0, len(l.records))
	for _, r := range l.records {
		if r.Persistable() {
			snapshot = append(snapshot, r)
		}
	}
	go l.persist(l.sel, snapshot, l.gen)
}

func (l *Ledger) persist(sel core.Selection, records []core.PaymentRecord, gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), l.saveTimeout)
	defer cancel()

	saved, err := l.store.SavePaymentRecords(ctx, sel.Venue, sel.ShowDate, records)

	var hookRecords []core.PaymentRecord

	l.mu.Lock()
	l.saving = false
	if gen != l.gen {
		// The show changed while this save was in flight. The result
		// belongs to the old show; the new show scheduled its own work.
		l.mu.Unlock()
		return
	}
	if err != nil {
		// Local edits stay untouched; the next triggering edit or an
		// explicit Flush retries.
		slog.WarnContext(ctx, "Payment persist failed",
			"venue", sel.Venue, "show_date", sel.ShowDate,
			"records", len(records), "error", err)
		l.setStatus(core.StatusFailed, true)
	} else {
		if l.dirty {
			// Edits arrived mid-flight. Adopt server-assigned ids but
			// keep the newer local field values; the pending persist
			// converges the rest.
			l.adoptIDs(saved)
		} else {
			l.records = append([]core.PaymentRecord(nil), saved...)
		}
		l.setStatus(core.StatusSaved, true)
		if l.savedHook != nil {
			hookRecords = append([]core.PaymentRecord(nil), l.records...)
		}
		slog.DebugContext(ctx, "Payment records saved",
			"venue", sel.Venue, "show_date", sel.ShowDate, "records", len(saved))
	}
	rerun := l.pending
	l.pending = false
	if rerun {
		l.kick()
	}
	l.mu.Unlock()

	if err == nil && l.savedHook != nil {
		l.savedHook(ctx, sel, hookRecords)
	}
}

// adoptIDs copies server-assigned identifiers onto local records by
// position among persistable records, without overwriting field values
// edited while the save was in flight.
func (l *Ledger) adoptIDs(saved []core.PaymentRecord) {
	i := 0
	for idx := range l.records {
		if !l.records[idx].Persistable() {
			continue
		}
		if i >= len(saved) {
			return
		}
		if l.records[idx].ID == "" {
			l.records[idx].ID = saved[i].ID
		}
		i++
	}
}

// setStatus updates the display status. When hold is true the status
// auto-reverts to Idle after the display window, unless something else
// replaced it first. Callers hold l.mu.
func (l *Ledger) setStatus(status core.SaveStatus, hold bool) {
	if l.statusTimer != nil {
		l.statusTimer.Stop()
		l.statusTimer = nil
	}
	l.status = status
	if !hold {
		return
	}
	l.statusTimer = time.AfterFunc(l.statusHold, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.status == status {
			l.status = core.StatusIdle
		}
	})
}

func (l *Ledger) stopDebounce() {
	if l.debTimer != nil {
		l.debTimer.Stop()
		l.debTimer = nil
	}
}
