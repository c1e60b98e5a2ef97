package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPaymentRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  PaymentRecord
		wantErr error
	}{
		{
			name:   "valid record",
			record: PaymentRecord{Name: "Jo Smith", Amount: decimal.NewFromInt(75)},
		},
		{
			name:   "zero amount is fine",
			record: PaymentRecord{Name: "Guest spot", Amount: decimal.Zero},
		},
		{
			name:    "negative amount rejected",
			record:  PaymentRecord{Name: "Jo Smith", Amount: decimal.NewFromInt(-5)},
			wantErr: ErrNegativeAmount,
		},
		{
			name:   "empty name is allowed transiently",
			record: PaymentRecord{Amount: decimal.NewFromInt(50)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPaymentRecord_Persistable(t *testing.T) {
	tests := []struct {
		name   string
		record PaymentRecord
		want   bool
	}{
		{name: "named record", record: PaymentRecord{Name: "Jo"}, want: true},
		{name: "empty name", record: PaymentRecord{}, want: false},
		{name: "whitespace-only name", record: PaymentRecord{Name: "   "}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Persistable(); got != tt.want {
				t.Errorf("Persistable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultPaymentRecord(t *testing.T) {
	r := DefaultPaymentRecord()
	if r.ID != "" {
		t.Errorf("new record should have no id, got %q", r.ID)
	}
	if !r.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("default amount = %s, want 50", r.Amount)
	}
	if r.Paid {
		t.Error("new record should be unpaid")
	}
}

func TestBreakdownPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload BreakdownPayload
		wantErr bool
	}{
		{
			name: "valid payload",
			payload: BreakdownPayload{
				PerSourceGross: map[string]decimal.Decimal{"Eventbrite": decimal.NewFromInt(1000)},
				VenueShareRate: decimal.NewFromInt(30),
			},
		},
		{
			name:    "missing per-source gross",
			payload: BreakdownPayload{VenueShareRate: decimal.NewFromInt(30)},
			wantErr: true,
		},
		{
			name: "negative gross",
			payload: BreakdownPayload{
				PerSourceGross: map[string]decimal.Decimal{"Manual": decimal.NewFromInt(-1)},
			},
			wantErr: true,
		},
		{
			name: "negative venue share rate",
			payload: BreakdownPayload{
				PerSourceGross: map[string]decimal.Decimal{},
				VenueShareRate: decimal.NewFromInt(-30),
			},
			wantErr: true,
		},
		{
			name: "empty but present gross map",
			payload: BreakdownPayload{
				PerSourceGross: map[string]decimal.Decimal{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeeRule_Fee(t *testing.T) {
	tests := []struct {
		name         string
		rule         FeeRule
		gross        string
		transactions int
		want         string
	}{
		{
			name:         "percentage plus fixed",
			rule:         FeeRule{Percent: dec("3.7"), FixedPerTransaction: dec("1.79")},
			gross:        "1000.00",
			transactions: 1,
			want:         "38.79",
		},
		{
			name:         "fixed fee scales with transactions",
			rule:         FeeRule{Percent: dec("2.9"), FixedPerTransaction: dec("0.30")},
			gross:        "100.00",
			transactions: 4,
			want:         "4.1",
		},
		{
			name:         "percentage only",
			rule:         FeeRule{Percent: dec("25")},
			gross:        "200.00",
			transactions: 10,
			want:         "50",
		},
		{
			name:         "zero rule charges nothing",
			rule:         FeeRule{},
			gross:        "500.00",
			transactions: 3,
			want:         "0",
		},
		{
			name:         "zero transactions skips fixed fee",
			rule:         FeeRule{Percent: dec("3.7"), FixedPerTransaction: dec("1.79")},
			gross:        "1000.00",
			transactions: 0,
			want:         "37",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Fee(dec(tt.gross), tt.transactions)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Fee(%s, %d) = %s, want %s", tt.gross, tt.transactions, got, tt.want)
			}
		})
	}
}

func TestDefaultFeeTable(t *testing.T) {
	table := DefaultFeeTable()

	if rule, ok := table["Eventbrite"]; !ok || rule.IsZero() {
		t.Error("Eventbrite should carry a non-zero fee rule")
	}
	if rule, ok := table["Manual"]; !ok || !rule.IsZero() {
		t.Error("Manual entries should carry a zero fee rule")
	}
	if _, ok := table["SomeNewPlatform"]; ok {
		t.Error("unknown sources must not be present; they default to zero fee")
	}
}
