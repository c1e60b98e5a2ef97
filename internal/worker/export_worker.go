// Package worker exports saved payment ledgers to the payout
// spreadsheet, driven by AMQP notifications from the dashboard.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"marquee/internal/amqp"
	"marquee/internal/gateway"
	"marquee/internal/sheets"
)

// ExportWorker handles export of saved payment records to the payout sheet
type ExportWorker struct {
	store  gateway.PaymentStore
	writer sheets.PayoutWriter
}

func NewExportWorker(store gateway.PaymentStore, writer sheets.PayoutWriter) *ExportWorker {
	return &ExportWorker{
		store:  store,
		writer: writer,
	}
}

// HandleSavedMessage processes a single payments-saved message from AMQP.
// The message carries only the show key; the authoritative records are
// fetched from the gateway so a stale or duplicated message exports the
// current state, not the state at publish time.
func (w *ExportWorker) HandleSavedMessage(ctx context.Context, msg *amqp.PaymentsSavedMessage) error {
	slog.InfoContext(ctx, "Processing payments saved message",
		"venue", msg.Venue,
		"show_date", msg.ShowDate,
		"record_count", msg.RecordCount)

	records, err := w.store.PaymentRecords(ctx, msg.Venue, msg.ShowDate)
	if err != nil {
		return fmt.Errorf("fetch payment records: %w", err)
	}

	if len(records) == 0 {
		slog.WarnContext(ctx, "No records found for saved show, nothing to export",
			"venue", msg.Venue,
			"show_date", msg.ShowDate)
		return nil
	}

	if err := w.writer.ExportPayouts(ctx, msg.Venue, msg.ShowDate, records); err != nil {
		return fmt.Errorf("export payouts: %w", err)
	}

	slog.InfoContext(ctx, "Exported payouts",
		"venue", msg.Venue,
		"show_date", msg.ShowDate,
		"records", len(records))
	return nil
}
