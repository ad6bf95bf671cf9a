package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/minexpert/bidwar/core"
)

// MinDescriptionLength is the shortest description, in characters, a bid may carry.
const MinDescriptionLength = 50

const (
	MsgPriceRequired     = "Price must be greater than 0"
	MsgTimelineRequired  = "Timeline is required"
	MsgTimelineFormat    = "Timeline must look like \"<number> days|weeks|months\""
	MsgDescriptionLength = "Description must be at least 50 characters"
)

// ValidateBid runs every shape check on a candidate bid against its project
// and returns all failures together. Project status, deadline and bid cap are
// auction-state concerns and are not checked here.
func ValidateBid(candidate BidCandidate, project core.Project) *BidValidationResult {
	return ValidateBidWithOptions(candidate, project, Options{})
}

// ValidateBidWithOptions is ValidateBid with tuning options.
func ValidateBidWithOptions(candidate BidCandidate, project core.Project, opts Options) *BidValidationResult {
	result := &BidValidationResult{
		Errors: make([]string, 0),
	}

	result.PriceValid = validatePrice(candidate, result)
	result.PriceInBudget = validateBudget(candidate, project, result)
	result.TimelineValid = validateTimeline(candidate, opts, result)
	result.DescriptionValid = validateDescription(candidate, result)

	return result
}

func validatePrice(candidate BidCandidate, result *BidValidationResult) bool {
	if candidate.Price > 0 {
		return true
	}
	result.Errors = append(result.Errors, MsgPriceRequired)
	return false
}

// validateBudget only applies to a positive price; a missing price is already reported.
func validateBudget(candidate BidCandidate, project core.Project, result *BidValidationResult) bool {
	if candidate.Price <= 0 {
		return false
	}
	if core.PriceWithinBudget(candidate.Price, project.Budget) {
		return true
	}
	result.Errors = append(result.Errors, budgetError(project.Budget))
	return false
}

func budgetError(budget core.Budget) string {
	currency := budget.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("Price must be between %s %.2f and %s %.2f", currency, budget.Min, currency, budget.Max)
}

func validateTimeline(candidate BidCandidate, opts Options, result *BidValidationResult) bool {
	if strings.TrimSpace(candidate.Timeline) == "" {
		result.Errors = append(result.Errors, MsgTimelineRequired)
		return false
	}
	if !opts.StrictTimeline {
		return true
	}
	if _, err := core.ParseTimelineStrict(candidate.Timeline); err != nil {
		result.Errors = append(result.Errors, MsgTimelineFormat)
		return false
	}
	return true
}

func validateDescription(candidate BidCandidate, result *BidValidationResult) bool {
	if utf8.RuneCountInString(candidate.Description) >= MinDescriptionLength {
		return true
	}
	result.Errors = append(result.Errors, MsgDescriptionLength)
	return false
}
