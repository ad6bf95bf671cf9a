package validation

import (
	"fmt"

	"github.com/minexpert/bidwar/core"
)

// ValidateRanking checks a ranked project snapshot against the auction invariants:
// - At most one LEADING bid, and it holds rank 1
// - Ranked bids carry ranks 1..N with no gaps, withdrawn bids carry 0
// - Every live bid is priced inside the budget
// - The project never holds more bids than MaxBids
//
// Used to audit snapshots read back from storage or produced by a simulation.
func ValidateRanking(project core.Project, bids []core.Bid) *RankingValidationResult {
	result := &RankingValidationResult{}

	result.LeaderValid = validateLeader(bids, result)
	result.RanksValid = validateRanks(bids, result)
	result.BudgetValid = validateBidBudgets(project, bids, result)
	result.CapacityValid = validateCapacity(project, bids, result)

	return result
}

func validateLeader(bids []core.Bid, result *RankingValidationResult) bool {
	leaders := 0
	valid := true
	for _, bid := range bids {
		if bid.Status != core.BidLeading {
			continue
		}
		leaders++
		if bid.Rank != 1 {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Leading bid %s has rank %d, expected 1", bid.ID, bid.Rank))
			valid = false
		}
	}
	if leaders > 1 {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Found %d leading bids, expected at most 1", leaders))
		return false
	}
	if valid {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Leader check passed: %d leading bid(s)", leaders))
	}
	return valid
}

func validateRanks(bids []core.Bid, result *RankingValidationResult) bool {
	seen := make(map[int]string)
	ranked := 0
	for _, bid := range bids {
		if !bid.Status.Rankable() {
			if bid.Rank != 0 {
				result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Unranked bid %s carries rank %d", bid.ID, bid.Rank))
				return false
			}
			continue
		}
		ranked++
		if other, dup := seen[bid.Rank]; dup {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bids %s and %s share rank %d", other, bid.ID, bid.Rank))
			return false
		}
		seen[bid.Rank] = bid.ID
	}
	for rank := 1; rank <= ranked; rank++ {
		if _, ok := seen[rank]; !ok {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Rank %d missing from %d ranked bids", rank, ranked))
			return false
		}
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Rank check passed: %d ranked bid(s)", ranked))
	return true
}

func validateBidBudgets(project core.Project, bids []core.Bid, result *RankingValidationResult) bool {
	_, excluded := core.EnforceBudget(bids, project.Budget)
	if len(excluded) == 0 {
		result.ValidationDetails = append(result.ValidationDetails, "Budget check passed")
		return true
	}
	for _, ex := range excluded {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid %s: %s", ex.BidID, ex.Reason))
	}
	return false
}

func validateCapacity(project core.Project, bids []core.Bid, result *RankingValidationResult) bool {
	if len(bids) > project.MaxBids {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Project holds %d bids, limit is %d", len(bids), project.MaxBids))
		return false
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Capacity check passed: %d of %d", len(bids), project.MaxBids))
	return true
}
