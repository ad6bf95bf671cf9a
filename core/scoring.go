package core

import "math"

// Composite weights. Fixed business rules.
const (
	PriceWeight    = 0.4
	TimelineWeight = 0.3
	ValueWeight    = 0.3
)

const (
	// scoreFloor is the lowest score any factor can drop to.
	scoreFloor = 0.1

	valueAddCredit  = 0.15
	caseStudyCredit = 0.25
)

// PriceScore rates a price against the project budget.
// At or below the minimum scores 1, at or above the maximum scores 0.1,
// and in between the score falls with distance from the midpoint.
func PriceScore(price float64, budget Budget) float64 {
	if price <= budget.Min {
		return 1
	}
	if price >= budget.Max {
		return scoreFloor
	}
	deviation := math.Abs(price-budget.Mid()) / (budget.Max - budget.Min)
	return math.Max(scoreFloor, 1-deviation)
}

// TimelineScore rates a bid's duration in weeks against the project's target in weeks.
func TimelineScore(bidWeeks, projectWeeks float64) float64 {
	if bidWeeks <= projectWeeks {
		return 1
	}
	if projectWeeks <= 0 {
		return scoreFloor
	}
	excess := (bidWeeks - projectWeeks) / projectWeeks
	return math.Max(scoreFloor, 1-excess)
}

// ValueScore credits value-adds and case studies, each capped at 1, averaged.
func ValueScore(valueAdds, caseStudies int) float64 {
	addScore := math.Min(1, valueAddCredit*float64(valueAdds))
	caseScore := math.Min(1, caseStudyCredit*float64(caseStudies))
	return (addScore + caseScore) / 2
}

// ScoreBid computes every factor and the weighted composite for a bid on a project.
func ScoreBid(bid Bid, project Project) ScoreBreakdown {
	s := ScoreBreakdown{
		Price:    PriceScore(bid.Price, project.Budget),
		Timeline: TimelineScore(ParseTimelineWeeks(bid.Timeline), ParseTimelineWeeks(project.Timeline)),
		Value:    ValueScore(len(bid.ValueAdds), len(bid.CaseStudies)),
	}
	s.Composite = PriceWeight*s.Price + TimelineWeight*s.Timeline + ValueWeight*s.Value
	return s
}

// CalculateBidRank returns the composite score in [0,1] used to order bids.
func CalculateBidRank(bid Bid, project Project) float64 {
	return ScoreBid(bid, project).Composite
}
