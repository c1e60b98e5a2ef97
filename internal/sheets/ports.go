// Package sheets defines the export port for payout bookkeeping.
// Adapters live in the subpackages: google (Google Sheets) and memory
// (tests).
package sheets

import (
	"context"

	"marquee/internal/core"
)

// PayoutWriter records a show's performer payouts in an external ledger.
type PayoutWriter interface {
	ExportPayouts(ctx context.Context, venue, showDate string, records []core.PaymentRecord) error
}
