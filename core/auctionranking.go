package core

import (
	"sort"
)

// RankBids scores every rankable bid against the project and orders them best first.
// Live bids come before accepted ones, so rank 1 goes to a bid that can lead whenever
// one exists. Ties on composite score go to the earliest SubmittedAt, then the lowest
// Sequence, so the same input always produces the same order.
//
// The returned bids are copies with Scores, Confidence and Rank (1..N) filled in.
// Withdrawn, rejected and draft bids are left out.
func RankBids(bids []Bid, project Project) []Bid {
	ranked := make([]Bid, 0, len(bids))
	for _, bid := range bids {
		if !bid.Status.Rankable() {
			continue
		}
		scored := bid.Clone()
		scored.Scores = ScoreBid(scored, project)
		scored.Confidence = scored.Scores.Composite
		ranked = append(ranked, scored)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankedBefore(ranked[i], ranked[j])
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

func rankedBefore(a, b Bid) bool {
	if settledA, settledB := a.Status.Terminal(), b.Status.Terminal(); settledA != settledB {
		return settledB
	}
	if a.Scores.Composite != b.Scores.Composite {
		return a.Scores.Composite > b.Scores.Composite
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.Sequence < b.Sequence
}
