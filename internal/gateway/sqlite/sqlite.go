// Package sqlite implements the gateway ports on a local SQLite file,
// for running the dashboard without the remote API.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marquee/internal/core"
	"marquee/internal/gateway"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Ensure interface conformance
var (
	_ gateway.VenueDirectory  = (*Store)(nil)
	_ gateway.ShowLister      = (*Store)(nil)
	_ gateway.BreakdownReader = (*Store)(nil)
	_ gateway.PaymentStore    = (*Store)(nil)
	_ gateway.RecentReader    = (*Store)(nil)
)

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Venues(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM venues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query venues: %w", err)
	}
	defer rows.Close()

	venues := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, name)
	}
	return venues, rows.Err()
}

func (s *Store) Shows(ctx context.Context, venue string) ([]core.Show, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT show_date, show_datetime, display_label FROM shows WHERE venue = ? ORDER BY show_date`, venue)
	if err != nil {
		return nil, fmt.Errorf("query shows: %w", err)
	}
	defer rows.Close()

	var shows []core.Show
	for rows.Next() {
		var show core.Show
		var datetime string
		if err := rows.Scan(&show.ShowDate, &datetime, &show.DisplayLabel); err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		show.ShowDatetime, err = time.Parse(time.RFC3339, datetime)
		if err != nil {
			return nil, fmt.Errorf("parse show datetime %q: %w", datetime, err)
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

func (s *Store) ShowBreakdown(ctx context.Context, venue, showDate string) (core.BreakdownPayload, error) {
	payload := core.BreakdownPayload{
		PerSourceGross:        map[string]decimal.Decimal{},
		PerSourceTransactions: map[string]int{},
	}

	var venueCost, shareRate string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_tickets, venue_cost, venue_cost_description, venue_share_rate
		   FROM show_finances WHERE venue = ? AND show_date = ?`, venue, showDate).
		Scan(&payload.TotalTickets, &venueCost, &payload.VenueCost.Description, &shareRate)
	if err == sql.ErrNoRows {
		return core.BreakdownPayload{}, fmt.Errorf("no finances for %s on %s", venue, showDate)
	}
	if err != nil {
		return core.BreakdownPayload{}, fmt.Errorf("query show finances: %w", err)
	}

	if payload.VenueCost.Amount, err = decimal.NewFromString(venueCost); err != nil {
		return core.BreakdownPayload{}, fmt.Errorf("parse venue cost %q: %w", venueCost, err)
	}
	if payload.VenueShareRate, err = decimal.NewFromString(shareRate); err != nil {
		return core.BreakdownPayload{}, fmt.Errorf("parse venue share rate %q: %w", shareRate, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, gross, transactions FROM breakdown_sources WHERE venue = ? AND show_date = ?`,
		venue, showDate)
	if err != nil {
		return core.BreakdownPayload{}, fmt.Errorf("query breakdown sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, gross string
		var transactions int
		if err := rows.Scan(&source, &gross, &transactions); err != nil {
			return core.BreakdownPayload{}, fmt.Errorf("scan breakdown source: %w", err)
		}
		amount, err := decimal.NewFromString(gross)
		if err != nil {
			return core.BreakdownPayload{}, fmt.Errorf("parse gross %q for %s: %w", gross, source, err)
		}
		payload.PerSourceGross[source] = amount
		payload.PerSourceTransactions[source] = transactions
	}
	return payload, rows.Err()
}

func (s *Store) PaymentRecords(ctx context.Context, venue, showDate string) ([]core.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, amount, payee_handle, paid, notes
		   FROM payment_records WHERE venue = ? AND show_date = ? ORDER BY position`,
		venue, showDate)
	if err != nil {
		return nil, fmt.Errorf("query payment records: %w", err)
	}
	defer rows.Close()

	var records []core.PaymentRecord
	for rows.Next() {
		var r core.PaymentRecord
		var amount string
		var paid int
		if err := rows.Scan(&r.ID, &r.Name, &amount, &r.PayeeHandle, &paid, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		r.Paid = paid != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// SavePaymentRecords replaces the show's record set atomically and
// marks the show as the most recently viewed. Records without an ID
// get a fresh one, which the caller adopts.
func (s *Store) SavePaymentRecords(ctx context.Context, venue, showDate string, records []core.PaymentRecord) ([]core.PaymentRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM payment_records WHERE venue = ? AND show_date = ?`, venue, showDate); err != nil {
		return nil, fmt.Errorf("clear payment records: %w", err)
	}

	saved := make([]core.PaymentRecord, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		paid := 0
		if r.Paid {
			paid = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payment_records (id, venue, show_date, position, name, amount, payee_handle, paid, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, venue, showDate, i, r.Name, r.Amount.String(), r.PayeeHandle, paid, r.Notes); err != nil {
			return nil, fmt.Errorf("insert payment record %d: %w", i, err)
		}
		saved[i] = r
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recent_selection (id, venue, show_date, viewed_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET venue = excluded.venue, show_date = excluded.show_date, viewed_at = excluded.viewed_at`,
		venue, showDate, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("update recent selection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}

	slog.InfoContext(ctx, "Payment records saved to SQLite",
		"venue", venue, "show_date", showDate, "records", len(saved))
	return saved, nil
}

func (s *Store) RecentSelection(ctx context.Context) (core.Selection, bool, error) {
	var sel core.Selection
	err := s.db.QueryRowContext(ctx,
		`SELECT venue, show_date FROM recent_selection WHERE id = 1`).
		Scan(&sel.Venue, &sel.ShowDate)
	if err == sql.ErrNoRows {
		return core.Selection{}, false, nil
	}
	if err != nil {
		return core.Selection{}, false, fmt.Errorf("query recent selection: %w", err)
	}
	return sel, true, nil
}

// ImportShow inserts a venue, its show, and the show's financial data.
// Used by the seed command and tests; existing rows are replaced.
func (s *Store) ImportShow(ctx context.Context, venue string, show core.Show, payload core.BreakdownPayload) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO venues (name) VALUES (?)`, venue); err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO shows (venue, show_date, show_datetime, display_label) VALUES (?, ?, ?, ?)`,
		venue, show.ShowDate, show.ShowDatetime.UTC().Format(time.RFC3339), show.DisplayLabel); err != nil {
		return fmt.Errorf("insert show: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO show_finances (venue, show_date, total_tickets, venue_cost, venue_cost_description, venue_share_rate)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		venue, show.ShowDate, payload.TotalTickets,
		payload.VenueCost.Amount.String(), payload.VenueCost.Description,
		payload.VenueShareRate.String()); err != nil {
		return fmt.Errorf("insert show finances: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM breakdown_sources WHERE venue = ? AND show_date = ?`, venue, show.ShowDate); err != nil {
		return fmt.Errorf("clear breakdown sources: %w", err)
	}
	for source, gross := range payload.PerSourceGross {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO breakdown_sources (venue, show_date, source, gross, transactions) VALUES (?, ?, ?, ?, ?)`,
			venue, show.ShowDate, source, gross.String(), payload.PerSourceTransactions[source]); err != nil {
			return fmt.Errorf("insert breakdown source %s: %w", source, err)
		}
	}

	return tx.Commit()
}
