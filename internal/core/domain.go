package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// PaymentRecord is one line of the performer-payment table for a show.
	// Identity is positional until the remote store assigns an ID on save.
	PaymentRecord struct {
		ID          string          `json:"id,omitempty"`
		Name        string          `json:"name"`
		Amount      decimal.Decimal `json:"amount"`
		PayeeHandle string          `json:"payee_handle,omitempty"`
		Paid        bool            `json:"paid"`
		Notes       string          `json:"notes,omitempty"`
	}

	// Show is one entry of a venue's show list.
	Show struct {
		ShowDate     string    `json:"show_date"`
		ShowDatetime time.Time `json:"show_datetime"`
		DisplayLabel string    `json:"display_label"`
	}

	// Selection identifies the show a ledger or breakdown is scoped to.
	Selection struct {
		Venue    string `json:"venue"`
		ShowDate string `json:"show_date"`
	}

	// VenueCost describes what the venue charges for hosting a show.
	VenueCost struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}

	// BreakdownPayload is the raw per-show financial data returned by the
	// remote store, before fees and shares are reconciled.
	BreakdownPayload struct {
		PerSourceGross        map[string]decimal.Decimal `json:"per_source_gross"`
		PerSourceTransactions map[string]int             `json:"per_source_transactions"`
		TotalTickets          int                        `json:"total_tickets"`
		VenueCost             VenueCost                  `json:"venue_cost"`
		VenueShareRate        decimal.Decimal            `json:"venue_share_rate"`
	}

	// RevenueBreakdown is the reconciled financial summary for a show.
	// Invariants: NetRevenue = GrossRevenue - TotalProcessingFees and
	// FinalNetRevenue = NetRevenue - VenueShare.
	RevenueBreakdown struct {
		GrossRevenue        decimal.Decimal            `json:"gross_revenue"`
		PerSourceGross      map[string]decimal.Decimal `json:"per_source_gross"`
		PerSourceFee        map[string]decimal.Decimal `json:"per_source_fee"`
		TotalProcessingFees decimal.Decimal            `json:"total_processing_fees"`
		NetRevenue          decimal.Decimal            `json:"net_revenue"`
		VenueShareRate      decimal.Decimal            `json:"venue_share_rate"`
		VenueShare          decimal.Decimal            `json:"venue_share"`
		FinalNetRevenue     decimal.Decimal            `json:"final_net_revenue"`
		VenueCost           VenueCost                  `json:"venue_cost"`
		TotalTickets        int                        `json:"total_tickets"`
	}
)

var (
	ErrMalformedBreakdown = errors.New("malformed breakdown payload")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrEmptyName          = errors.New("empty performer name")
	// ErrSaveConflict is reserved for optimistic-concurrency use; the
	// ledger's in-flight guard currently prevents overlapping saves.
	ErrSaveConflict = errors.New("save conflict")
)

// Validate checks the fields an operator can edit. An empty name is legal
// in the UI list; persistence filters such records instead of failing.
func (r PaymentRecord) Validate() error {
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Persistable reports whether the record should be included in a save.
func (r PaymentRecord) Persistable() bool {
	return strings.TrimSpace(r.Name) != ""
}

// DefaultPaymentRecord returns the record appended by an "add row" action.
func DefaultPaymentRecord() PaymentRecord {
	return PaymentRecord{Amount: decimal.NewFromInt(50)}
}

// Validate checks the invariants a payload must satisfy before
// reconciliation. Missing fee-table entries are not checked here; they
// default to zero by policy.
func (p BreakdownPayload) Validate() error {
	if p.PerSourceGross == nil {
		return errors.New("per-source gross revenue missing")
	}
	for source, gross := range p.PerSourceGross {
		if gross.IsNegative() {
			return errors.New("negative gross revenue for source " + source)
		}
	}
	if p.VenueShareRate.IsNegative() {
		return errors.New("negative venue share rate")
	}
	return nil
}

// IsZero reports whether the selection is unset.
func (s Selection) IsZero() bool {
	return s.Venue == "" && s.ShowDate == ""
}
