package validation

import "github.com/minexpert/bidwar/core"

// BidCandidate is the shape of a submitted bid before it is accepted.
type BidCandidate struct {
	Price       float64          `json:"price"`
	Timeline    string           `json:"timeline"`
	Description string           `json:"description"`
	ValueAdds   []string         `json:"value_adds,omitempty"`
	CaseStudies []core.CaseStudy `json:"case_studies,omitempty"`
}

// Options tunes ValidateBid.
type Options struct {
	// StrictTimeline rejects timelines the parser does not recognize
	// instead of letting them score as zero weeks.
	StrictTimeline bool
}

// BidValidationResult contains the outcome of every shape check on a bid.
// Every check runs; Errors lists all failures in check order.
type BidValidationResult struct {
	PriceValid       bool
	PriceInBudget    bool
	TimelineValid    bool
	DescriptionValid bool
	Errors           []string
}

// IsValid returns true if no check failed
func (r *BidValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// RankingValidationResult contains the outcome of checking a ranked project snapshot.
type RankingValidationResult struct {
	LeaderValid       bool
	RanksValid        bool
	BudgetValid       bool
	CapacityValid     bool
	ValidationDetails []string
}

// IsValid returns true if all ranking checks passed
func (r *RankingValidationResult) IsValid() bool {
	return r.LeaderValid && r.RanksValid && r.BudgetValid && r.CapacityValid
}
