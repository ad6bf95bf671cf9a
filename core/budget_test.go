package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestPriceWithinBudget(t *testing.T) {
	budget := Budget{Min: 85000, Max: 120000, Currency: "USD"}

	tests := []struct {
		name     string
		price    float64
		expected bool
	}{
		{"inside band", 95000, true},
		{"at minimum", 85000, true},
		{"at maximum", 120000, true},
		{"below minimum", 84999.99, false},
		{"above maximum", 120000.01, false},
		{"zero", 0, false},
		{"negative", -1, false},
		{"sub-cent below minimum", 84999.995, false},
		{"sub-cent above maximum", 120000.004, false},
		{"sub-cent inside band", 119999.995, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.expected, PriceWithinBudget(tt.price, budget))
		})
	}
}

func TestPriceWithinBudget_SinglePointBand(t *testing.T) {
	budget := Budget{Min: 5000, Max: 5000}

	check.True(t, PriceWithinBudget(5000, budget))
	check.False(t, PriceWithinBudget(5000.5, budget))
	check.False(t, PriceWithinBudget(4999, budget))
}

func TestEnforceBudget(t *testing.T) {
	budget := Budget{Min: 100, Max: 200}
	bids := []Bid{
		{ID: "bid1", Price: 150, Status: BidLeading},
		{ID: "bid2", Price: 250, Status: BidOutbid},
		{ID: "bid3", Price: 50, Status: BidWithdrawn},
		{ID: "bid4", Price: 99, Status: BidSubmitted},
		{ID: "bid5", Price: 300, Status: BidRejected},
	}

	eligible, excluded := EnforceBudget(bids, budget)

	check.Equal(t, 3, len(eligible))
	check.Equal(t, "bid1", eligible[0].ID)
	check.Equal(t, "bid3", eligible[1].ID)
	check.Equal(t, "bid5", eligible[2].ID)

	check.Equal(t, 2, len(excluded))
	check.Equal(t, "bid2", excluded[0].BidID)
	check.Equal(t, "price 250.00 outside budget [100.00, 200.00]", excluded[0].Reason)
	check.Equal(t, "bid4", excluded[1].BidID)
}

func TestEnforceBudget_Empty(t *testing.T) {
	eligible, excluded := EnforceBudget(nil, Budget{Min: 1, Max: 2})

	check.Equal(t, 0, len(eligible))
	check.Equal(t, []ExcludedBid{}, excluded)
}
