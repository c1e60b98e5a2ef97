// Package core holds the domain model of the show-financial dashboard:
// payment records, revenue breakdowns, and the fee policies of the
// ticketing platforms the business sells through.
package core

import "github.com/shopspring/decimal"

// FeeRule is the processing-fee policy of one revenue source: a percentage
// of gross plus an optional fixed amount per transaction.
type FeeRule struct {
	Percent             decimal.Decimal
	FixedPerTransaction decimal.Decimal
}

// FeeTable maps a revenue-source name to its fee rule. Sources absent from
// the table incur zero fee; that is a documented policy, not an error.
type FeeTable map[string]FeeRule

// Fee computes the total processing fee for gross revenue collected over
// the given number of transactions.
func (r FeeRule) Fee(gross decimal.Decimal, transactions int) decimal.Decimal {
	fee := gross.Mul(r.Percent).Div(decimal.NewFromInt(100))
	if !r.FixedPerTransaction.IsZero() && transactions > 0 {
		fee = fee.Add(r.FixedPerTransaction.Mul(decimal.NewFromInt(int64(transactions))))
	}
	return fee
}

// IsZero reports whether the rule charges nothing.
func (r FeeRule) IsZero() bool {
	return r.Percent.IsZero() && r.FixedPerTransaction.IsZero()
}

// DefaultFeeTable returns the fee policies of the platforms currently in
// use. Rates are contractual; update here when a platform changes terms.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		"Squarespace": {Percent: dec("2.9"), FixedPerTransaction: dec("0.30")},
		"Eventbrite":  {Percent: dec("3.7"), FixedPerTransaction: dec("1.79")},
		"Bucketlist":  {Percent: dec("25")},
		"Fever":       {Percent: dec("25")},
		"DoMORE":      {},
		"Manual":      {},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
