package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/validation"
)

func (a *app) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check bids and ranked snapshots without running an auction",
		Long: `Check bids and ranked snapshots without running an auction.

Each input flag accepts either a file path or inline JSON.

Exit codes:
  0 - validation passed
  1 - validation failed
  2 - invalid input or runtime error`,
	}
	cmd.AddCommand(a.validateBidCmd())
	cmd.AddCommand(a.validateRankingCmd())
	return cmd
}

func (a *app) validateBidCmd() *cobra.Command {
	var projectInput, bidInput string
	var strict bool
	cmd := &cobra.Command{
		Use:   "bid",
		Short: "Validate a bid payload against a project's budget",
		Example: `  bidwar validate bid \
    --project '{"id":"p1","budget":{"min":85000,"max":120000,"currency":"USD"}}' \
    --bid '{"consultant_id":"c1","price":95000,"timeline":"3 weeks","description":"..."}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var project core.Project
			if err := decodeJSONInput(projectInput, &project); err != nil {
				return fmt.Errorf("reading project: %w", err)
			}
			data, err := readJSONInput(bidInput)
			if err != nil {
				return fmt.Errorf("reading bid: %w", err)
			}
			req, err := bidapi.DecodeSubmitBid(data)
			if err != nil {
				return fmt.Errorf("reading bid: %w", err)
			}

			opts := validation.Options{StrictTimeline: strict || a.cfg.Engine.StrictTimeline}
			result := validation.ValidateBidWithOptions(validation.BidCandidate{
				Price:       req.Price,
				Timeline:    req.Timeline,
				Description: req.Description,
				ValueAdds:   req.ValueAdds,
				CaseStudies: req.CaseStudies,
			}, project, opts)

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				if err := writeJSON(out, bidResultJSON(result, project, req)); err != nil {
					return err
				}
			} else {
				writeBidResultText(out, result, project, req)
			}
			if !result.IsValid() {
				return invalid(nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectInput, "project", "", "project JSON (file path or inline)")
	cmd.Flags().StringVar(&bidInput, "bid", "", "bid payload JSON (file path or inline)")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject timelines that do not parse")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("bid")
	return cmd
}

func bidResultJSON(result *validation.BidValidationResult, project core.Project, req bidapi.SubmitBidRequest) map[string]any {
	out := map[string]any{
		"valid":             result.IsValid(),
		"price_valid":       result.PriceValid,
		"price_in_budget":   result.PriceInBudget,
		"timeline_valid":    result.TimelineValid,
		"description_valid": result.DescriptionValid,
		"errors":            result.Errors,
	}
	if result.IsValid() {
		out["scores"] = core.ScoreBid(bidFromRequest(req), project)
	}
	return out
}

func writeBidResultText(w io.Writer, result *validation.BidValidationResult, project core.Project, req bidapi.SubmitBidRequest) {
	fmt.Fprintln(w, "Bid Validation")
	fmt.Fprintln(w, "==============")
	fmt.Fprintf(w, "  Price Valid:        %v\n", result.PriceValid)
	fmt.Fprintf(w, "  Price In Budget:    %v\n", result.PriceInBudget)
	fmt.Fprintf(w, "  Timeline Valid:     %v\n", result.TimelineValid)
	fmt.Fprintf(w, "  Description Valid:  %v\n", result.DescriptionValid)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	} else {
		scores := core.ScoreBid(bidFromRequest(req), project)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Scores:")
		fmt.Fprintf(w, "  Price:      %.4f\n", scores.Price)
		fmt.Fprintf(w, "  Timeline:   %.4f\n", scores.Timeline)
		fmt.Fprintf(w, "  Value:      %.4f\n", scores.Value)
		fmt.Fprintf(w, "  Composite:  %.4f\n", scores.Composite)
	}

	fmt.Fprintln(w)
	if result.IsValid() {
		fmt.Fprintln(w, "VALIDATION: ✓ PASSED")
	} else {
		fmt.Fprintln(w, "VALIDATION: ✗ FAILED")
	}
}

func bidFromRequest(req bidapi.SubmitBidRequest) core.Bid {
	return core.Bid{
		Price:       req.Price,
		Timeline:    req.Timeline,
		Description: req.Description,
		ValueAdds:   req.ValueAdds,
		CaseStudies: req.CaseStudies,
	}
}

func (a *app) validateRankingCmd() *cobra.Command {
	var projectInput, bidsInput string
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Audit a ranked project snapshot",
		Long: `Audit a ranked project snapshot, such as one exported from the store:
at most one leader holding rank 1, contiguous ranks, live bids inside the
budget and no more bids than the project allows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var project core.Project
			if err := decodeJSONInput(projectInput, &project); err != nil {
				return fmt.Errorf("reading project: %w", err)
			}
			var bids []core.Bid
			if err := decodeJSONInput(bidsInput, &bids); err != nil {
				return fmt.Errorf("reading bids: %w", err)
			}

			result := validation.ValidateRanking(project, bids)

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				err := writeJSON(out, map[string]any{
					"valid":          result.IsValid(),
					"leader_valid":   result.LeaderValid,
					"ranks_valid":    result.RanksValid,
					"budget_valid":   result.BudgetValid,
					"capacity_valid": result.CapacityValid,
					"details":        result.ValidationDetails,
				})
				if err != nil {
					return err
				}
			} else {
				writeRankingResultText(out, result)
			}
			if !result.IsValid() {
				return invalid(nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectInput, "project", "", "project JSON (file path or inline)")
	cmd.Flags().StringVar(&bidsInput, "bids", "", "JSON array of bids (file path or inline)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("bids")
	return cmd
}

func writeRankingResultText(w io.Writer, result *validation.RankingValidationResult) {
	fmt.Fprintln(w, "Ranking Validation")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "  Leader Valid:    %v\n", result.LeaderValid)
	fmt.Fprintf(w, "  Ranks Valid:     %v\n", result.RanksValid)
	fmt.Fprintf(w, "  Budget Valid:    %v\n", result.BudgetValid)
	fmt.Fprintf(w, "  Capacity Valid:  %v\n", result.CapacityValid)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Fprintf(w, "  - %s\n", detail)
	}

	fmt.Fprintln(w)
	if result.IsValid() {
		fmt.Fprintln(w, "VALIDATION: ✓ PASSED")
	} else {
		fmt.Fprintln(w, "VALIDATION: ✗ FAILED")
	}
}
