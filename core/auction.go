package core

// RankProject executes the ranking pipeline for one project: score → order → annotate.
//
// Processing flow:
//  1. Score and order every rankable bid (RankBids)
//  2. Mark rank 1 LEADING and every other live bid OUTBID; settled bids keep their status
//  3. Reset rank on withdrawn and rejected bids
//  4. Record which bids moved so callers can publish only real changes
//
// The input slice is not modified.
func RankProject(project Project, bids []Bid) *RankingResult {
	before := make(map[string]Bid, len(bids))
	for _, bid := range bids {
		before[bid.ID] = bid
	}

	ranked := RankBids(bids, project)
	for i := range ranked {
		ranked[i].Status = rankedStatus(ranked[i])
	}

	result := &RankingResult{
		Bids:    make([]Bid, 0, len(bids)),
		Changed: make([]string, 0),
	}
	result.Bids = append(result.Bids, ranked...)

	for _, bid := range bids {
		if bid.Status.Rankable() {
			continue
		}
		unranked := bid.Clone()
		unranked.Rank = 0
		result.Bids = append(result.Bids, unranked)
	}

	if len(ranked) > 0 {
		result.Leader = &result.Bids[0]
	}
	if len(ranked) > 1 {
		result.RunnerUp = &result.Bids[1]
	}

	for _, bid := range result.Bids {
		prev := before[bid.ID]
		if prev.Rank != bid.Rank || prev.Status != bid.Status || prev.Confidence != bid.Confidence {
			result.Changed = append(result.Changed, bid.ID)
		}
	}

	return result
}

// rankedStatus returns the status a ranked bid should carry. An accepted bid is
// an owner decision and never changes here.
func rankedStatus(bid Bid) BidStatus {
	if bid.Status.Terminal() {
		return bid.Status
	}
	if bid.Rank == 1 {
		return BidLeading
	}
	return BidOutbid
}
