package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceWithinBudget returns true if price lies in [budget.Min, budget.Max] inclusive.
// Values are compared as exact decimals with no rounding, so a sub-cent excess
// such as 120000.004 is outside a 120000 maximum.
func PriceWithinBudget(price float64, budget Budget) bool {
	priceDecimal := decimal.NewFromFloat(price)
	minDecimal := decimal.NewFromFloat(budget.Min)
	maxDecimal := decimal.NewFromFloat(budget.Max)

	return priceDecimal.GreaterThanOrEqual(minDecimal) && priceDecimal.LessThanOrEqual(maxDecimal)
}

// EnforceBudget splits bids into those priced inside the budget and those outside it.
// Withdrawn and rejected bids pass through untouched; they no longer claim a price.
func EnforceBudget(bids []Bid, budget Budget) (eligible []Bid, excluded []ExcludedBid) {
	eligible = make([]Bid, 0, len(bids))
	excluded = make([]ExcludedBid, 0)

	for _, bid := range bids {
		if bid.Status == BidWithdrawn || bid.Status == BidRejected || PriceWithinBudget(bid.Price, budget) {
			eligible = append(eligible, bid)
			continue
		}
		excluded = append(excluded, ExcludedBid{
			BidID:  bid.ID,
			Reason: fmt.Sprintf("price %.2f outside budget [%.2f, %.2f]", bid.Price, budget.Min, budget.Max),
		})
	}

	return eligible, excluded
}
