package core

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestRankProject_AssignsLeaderAndOutbid(t *testing.T) {
	bids := []Bid{
		testBid("second", 110000, "4 weeks", 0),
		testBid("first", 100000, "3 weeks", time.Minute),
		testBid("third", 119000, "6 weeks", 2*time.Minute),
	}

	result := RankProject(testProject(), bids)

	check.NotNil(t, result.Leader)
	check.Equal(t, "first", result.Leader.ID)
	check.Equal(t, BidLeading, result.Leader.Status)
	check.NotNil(t, result.RunnerUp)
	check.Equal(t, "second", result.RunnerUp.ID)
	check.Equal(t, BidOutbid, result.RunnerUp.Status)
	check.Equal(t, BidOutbid, result.Bids[2].Status)
	check.Equal(t, 3, len(result.Changed))
}

func TestRankProject_SingleLeader(t *testing.T) {
	bids := []Bid{
		testBid("a", 100000, "4 weeks", 0),
		testBid("b", 100000, "4 weeks", time.Minute),
		testBid("c", 100000, "4 weeks", 2*time.Minute),
	}
	bids[1].Status = BidLeading
	bids[2].Status = BidLeading

	result := RankProject(testProject(), bids)

	leaders := 0
	for _, bid := range result.Bids {
		if bid.Status == BidLeading {
			leaders++
		}
	}
	check.Equal(t, 1, leaders)
	check.Equal(t, "a", result.Leader.ID)
}

func TestRankProject_WithdrawnBidsUnranked(t *testing.T) {
	leader := testBid("leader", 90000, "2 weeks", 0)
	leader.Status = BidWithdrawn
	leader.Rank = 1

	result := RankProject(testProject(), []Bid{leader, testBid("next", 110000, "4 weeks", time.Minute)})

	check.Equal(t, 2, len(result.Bids))
	check.Equal(t, "next", result.Leader.ID)
	check.Equal(t, BidLeading, result.Leader.Status)
	check.Nil(t, result.RunnerUp)

	withdrawn := result.Bids[1]
	check.Equal(t, "leader", withdrawn.ID)
	check.Equal(t, 0, withdrawn.Rank)
	check.Equal(t, BidWithdrawn, withdrawn.Status)
}

func TestRankProject_RejectedBidsUnranked(t *testing.T) {
	rejected := testBid("rejected", 95000, "3 weeks", 0)
	rejected.Status = BidRejected
	rejected.Rank = 1
	bids := []Bid{
		rejected,
		testBid("b", 100000, "3 weeks", time.Minute),
		testBid("c", 110000, "4 weeks", 2*time.Minute),
	}

	result := RankProject(testProject(), bids)

	check.Equal(t, "b", result.Leader.ID)
	check.Equal(t, BidLeading, result.Leader.Status)
	check.Equal(t, 1, result.Leader.Rank)
	check.Equal(t, "c", result.RunnerUp.ID)
	check.Equal(t, BidOutbid, result.RunnerUp.Status)

	last := result.Bids[2]
	check.Equal(t, "rejected", last.ID)
	check.Equal(t, BidRejected, last.Status)
	check.Equal(t, 0, last.Rank)
	check.In(t, "rejected", result.Changed)
}

func TestRankProject_AcceptedBidKeepsStatusBehindLiveBids(t *testing.T) {
	accepted := testBid("accepted", 95000, "3 weeks", 0)
	accepted.Status = BidAccepted
	live := testBid("live", 110000, "6 weeks", time.Minute)

	result := RankProject(testProject(), []Bid{accepted, live})

	check.Equal(t, "live", result.Leader.ID)
	check.Equal(t, BidLeading, result.Leader.Status)
	check.Equal(t, "accepted", result.RunnerUp.ID)
	check.Equal(t, BidAccepted, result.RunnerUp.Status)
	check.Equal(t, 2, result.RunnerUp.Rank)

	// Once every other bid is settled the accepted bid holds rank 1 without leading.
	only := RankProject(testProject(), []Bid{accepted})
	check.Equal(t, 1, only.Leader.Rank)
	check.Equal(t, BidAccepted, only.Leader.Status)
}

func TestRankProject_ReportsOnlyChangedBids(t *testing.T) {
	bids := []Bid{
		testBid("a", 95000, "3 weeks", 0),
		testBid("b", 110000, "4 weeks", time.Minute),
	}
	first := RankProject(testProject(), bids)

	// Ranking the annotated output again moves nothing.
	second := RankProject(testProject(), first.Bids)
	check.Equal(t, 0, len(second.Changed))

	// A new better bid displaces the leader and moves the runner-up.
	withNew := append(append([]Bid{}, first.Bids...), testBid("c", 85000, "1 week", 2*time.Minute))
	third := RankProject(testProject(), withNew)
	check.Equal(t, "c", third.Leader.ID)
	check.Equal(t, []string{"c", "a", "b"}, third.Changed)
}

func TestRankProject_Empty(t *testing.T) {
	result := RankProject(testProject(), nil)

	check.NotNil(t, result)
	check.Nil(t, result.Leader)
	check.Nil(t, result.RunnerUp)
	check.Equal(t, 0, len(result.Bids))
	check.Equal(t, 0, len(result.Changed))
}
