// Package reconcile derives a consistent net-revenue figure for a show
// from the raw per-source payload and the platform fee table.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"marquee/internal/core"
)

// Calculator turns raw breakdown payloads into reconciled revenue
// breakdowns. It is pure: no side effects, identical input gives
// identical output.
type Calculator struct {
	fees core.FeeTable
}

// NewCalculator builds a calculator over the given fee table. A nil table
// means every source incurs zero fees.
func NewCalculator(fees core.FeeTable) *Calculator {
	if fees == nil {
		fees = core.FeeTable{}
	}
	return &Calculator{fees: fees}
}

// Breakdown reconciles a payload into a RevenueBreakdown.
//
// The venue share is computed from net revenue (after processing fees),
// not from gross. The venue takes a cut of the take-home, which is the
// agreed split; a gross-based cut would overstate what the venue is owed.
func (c *Calculator) Breakdown(payload core.BreakdownPayload) (core.RevenueBreakdown, error) {
	if err := payload.Validate(); err != nil {
		return core.RevenueBreakdown{}, fmt.Errorf("%w: %v", core.ErrMalformedBreakdown, err)
	}

	perSourceGross := make(map[string]decimal.Decimal, len(payload.PerSourceGross))
	perSourceFee := make(map[string]decimal.Decimal, len(payload.PerSourceGross))

	gross := decimal.Zero
	totalFees := decimal.Zero

	for _, source := range sortedSources(payload.PerSourceGross) {
		sourceGross := payload.PerSourceGross[source]
		fee := c.fees[source].Fee(sourceGross, payload.PerSourceTransactions[source])

		perSourceGross[source] = sourceGross
		perSourceFee[source] = fee
		gross = gross.Add(sourceGross)
		totalFees = totalFees.Add(fee)
	}

	net := gross.Sub(totalFees)
	venueShare := net.Mul(payload.VenueShareRate).Div(decimal.NewFromInt(100))

	return core.RevenueBreakdown{
		GrossRevenue:        gross,
		PerSourceGross:      perSourceGross,
		PerSourceFee:        perSourceFee,
		TotalProcessingFees: totalFees,
		NetRevenue:          net,
		VenueShareRate:      payload.VenueShareRate,
		VenueShare:          venueShare,
		FinalNetRevenue:     net.Sub(venueShare),
		VenueCost:           payload.VenueCost,
		TotalTickets:        payload.TotalTickets,
	}, nil
}

// sortedSources gives a stable iteration order so repeated calls build the
// breakdown identically.
func sortedSources(gross map[string]decimal.Decimal) []string {
	sources := make([]string, 0, len(gross))
	for source := range gross {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
