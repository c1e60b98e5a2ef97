// Package gateway defines the ports to the remote show store. Adapters
// live in the subpackages: httpapi (remote JSON API), sqlite (local
// store), and memory (tests and default backend).
package gateway

import (
	"context"
	"errors"

	"marquee/internal/core"
)

// Ports for outbound adapters.
type (
	VenueDirectory interface {
		Venues(ctx context.Context) ([]string, error)
	}

	ShowLister interface {
		Shows(ctx context.Context, venue string) ([]core.Show, error)
	}

	BreakdownReader interface {
		ShowBreakdown(ctx context.Context, venue, showDate string) (core.BreakdownPayload, error)
	}

	// PaymentStore holds the authoritative performer-payment records.
	// Save returns the stored list with server-assigned identifiers.
	PaymentStore interface {
		PaymentRecords(ctx context.Context, venue, showDate string) ([]core.PaymentRecord, error)
		SavePaymentRecords(ctx context.Context, venue, showDate string, records []core.PaymentRecord) ([]core.PaymentRecord, error)
	}

	// RecentReader reports the most recently viewed show, if any.
	RecentReader interface {
		RecentSelection(ctx context.Context) (core.Selection, bool, error)
	}
)

var (
	// ErrTransport marks network or HTTP-level failures.
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse marks responses missing required fields.
	ErrMalformedResponse = errors.New("malformed response")
)
