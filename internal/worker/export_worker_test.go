package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"marquee/internal/amqp"
	"marquee/internal/core"
	gatewaymemory "marquee/internal/gateway/memory"
	sheetsmemory "marquee/internal/sheets/memory"
)

func TestExportWorker_HandleSavedMessage(t *testing.T) {
	store := gatewaymemory.New()
	writer := sheetsmemory.New()
	w := NewExportWorker(store, writer)
	ctx := context.Background()

	records := []core.PaymentRecord{
		{Name: "Joey", Amount: decimal.NewFromInt(75), Paid: true},
		{Name: "Dana", Amount: decimal.NewFromInt(50)},
	}
	if _, err := store.SavePaymentRecords(ctx, "Laugh House", "2025-08-29", records); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	msg := amqp.NewPaymentsSavedMessage("Laugh House", "2025-08-29", 2, "125.00")
	if err := w.HandleSavedMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSavedMessage: %v", err)
	}

	exports := writer.Exports()
	if len(exports) != 1 {
		t.Fatalf("got %d exports, want 1", len(exports))
	}
	if exports[0].Venue != "Laugh House" || exports[0].ShowDate != "2025-08-29" {
		t.Errorf("export key = %s/%s", exports[0].Venue, exports[0].ShowDate)
	}
	if len(exports[0].Records) != 2 || exports[0].Records[0].Name != "Joey" {
		t.Errorf("export records = %+v", exports[0].Records)
	}
}

func TestExportWorker_NoRecordsSkipsExport(t *testing.T) {
	store := gatewaymemory.New()
	writer := sheetsmemory.New()
	w := NewExportWorker(store, writer)

	msg := amqp.NewPaymentsSavedMessage("Laugh House", "2025-08-29", 0, "0")
	if err := w.HandleSavedMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSavedMessage: %v", err)
	}
	if len(writer.Exports()) != 0 {
		t.Error("empty show should not be exported")
	}
}

type failingStore struct {
	gatewaymemory.Store
}

func (f *failingStore) PaymentRecords(context.Context, string, string) ([]core.PaymentRecord, error) {
	return nil, errors.New("store down")
}

func TestExportWorker_StoreFailurePropagates(t *testing.T) {
	w := NewExportWorker(&failingStore{}, sheetsmemory.New())

	msg := amqp.NewPaymentsSavedMessage("Laugh House", "2025-08-29", 1, "50.00")
	if err := w.HandleSavedMessage(context.Background(), msg); err == nil {
		t.Error("store failure should propagate so the message is retried")
	}
}
