// Package bidapi holds the wire shapes exchanged with clients and listeners.
// Views never carry consultant identity; bids are shown under their anonymous ID only.
package bidapi

import (
	"errors"
	"time"

	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/engine"
)

// SubmitBidRequest is the payload a consultant sends to submit or update a bid.
type SubmitBidRequest struct {
	ConsultantID string           `json:"consultant_id" yaml:"consultant_id"`
	Price        float64          `json:"price" yaml:"price"`
	Timeline     string           `json:"timeline" yaml:"timeline"`
	Description  string           `json:"description" yaml:"description"`
	ValueAdds    []string         `json:"value_adds,omitempty" yaml:"value_adds,omitempty"`
	CaseStudies  []core.CaseStudy `json:"case_studies,omitempty" yaml:"case_studies,omitempty"`
}

// Submission converts the request for the engine.
func (r SubmitBidRequest) Submission() engine.Submission {
	return engine.Submission{
		ConsultantID: r.ConsultantID,
		Price:        r.Price,
		Timeline:     r.Timeline,
		Description:  r.Description,
		ValueAdds:    r.ValueAdds,
		CaseStudies:  r.CaseStudies,
	}
}

// WithdrawBidRequest identifies the consultant pulling a bid.
type WithdrawBidRequest struct {
	ConsultantID string `json:"consultant_id"`
}

// BidView is a bid as other parties see it. It mirrors core.Bid minus ConsultantID.
type BidView struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"project_id"`
	AnonymousID string              `json:"anonymous_id"`
	Price       float64             `json:"price"`
	Timeline    string              `json:"timeline"`
	Description string              `json:"description"`
	ValueAdds   []string            `json:"value_adds,omitempty"`
	CaseStudies []core.CaseStudy    `json:"case_studies,omitempty"`
	Status      core.BidStatus      `json:"status"`
	Rank        int                 `json:"rank,omitempty"`
	Confidence  float64             `json:"confidence"`
	Scores      core.ScoreBreakdown `json:"scores"`
	SubmittedAt time.Time           `json:"submitted_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewBidView strips identity from bid.
func NewBidView(bid core.Bid) BidView {
	bid = bid.Clone()
	return BidView{
		ID:          bid.ID,
		ProjectID:   bid.ProjectID,
		AnonymousID: bid.AnonymousID,
		Price:       bid.Price,
		Timeline:    bid.Timeline,
		Description: bid.Description,
		ValueAdds:   bid.ValueAdds,
		CaseStudies: bid.CaseStudies,
		Status:      bid.Status,
		Rank:        bid.Rank,
		Confidence:  bid.Confidence,
		Scores:      bid.Scores,
		SubmittedAt: bid.SubmittedAt,
		UpdatedAt:   bid.UpdatedAt,
	}
}

// ProjectView is the public project header.
type ProjectView struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Budget   core.Budget        `json:"budget"`
	Timeline string             `json:"timeline"`
	Deadline time.Time          `json:"deadline"`
	MaxBids  int                `json:"max_bids"`
	Status   core.ProjectStatus `json:"status"`
}

func NewProjectView(p core.Project) ProjectView {
	return ProjectView{
		ID:       p.ID,
		Title:    p.Title,
		Budget:   p.Budget,
		Timeline: p.Timeline,
		Deadline: p.Deadline,
		MaxBids:  p.MaxBids,
		Status:   p.Status,
	}
}

// Leaderboard is a ranked project snapshot.
type Leaderboard struct {
	Project  ProjectView `json:"project"`
	Bids     []BidView   `json:"bids"`
	Leader   *BidView    `json:"leader,omitempty"`
	RunnerUp *BidView    `json:"runner_up,omitempty"`
}

// NewLeaderboard builds a Leaderboard from bids already in rank order, such as
// Engine.RankedBids returns. Unranked bids are left out.
func NewLeaderboard(p core.Project, ranked []core.Bid) Leaderboard {
	board := Leaderboard{Project: NewProjectView(p), Bids: make([]BidView, 0, len(ranked))}
	for _, bid := range ranked {
		if bid.Rank == 0 {
			continue
		}
		view := NewBidView(bid)
		board.Bids = append(board.Bids, view)
		switch bid.Rank {
		case 1:
			board.Leader = &view
		case 2:
			board.RunnerUp = &view
		}
	}
	return board
}

// EventView is the serialized form of an engine event.
type EventView struct {
	Type      core.EventType `json:"type"`
	ProjectID string         `json:"project_id"`
	Project   ProjectView    `json:"project"`
	Bid       *BidView       `json:"bid,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEventView converts ev. Project-level events carry no bid.
func NewEventView(ev core.Event) EventView {
	view := EventView{
		Type:      ev.Type,
		ProjectID: ev.Project.ID,
		Project:   NewProjectView(ev.Project),
		Timestamp: ev.Timestamp,
	}
	if ev.Bid.ID != "" {
		bid := NewBidView(ev.Bid)
		view.Bid = &bid
	}
	return view
}

// ErrorView is the client-facing rendering of a refused operation.
type ErrorView struct {
	Code             engine.ErrorCode  `json:"code"`
	Class            engine.ErrorClass `json:"class,omitempty"`
	Message          string            `json:"message"`
	Details          string            `json:"details,omitempty"`
	ValidationErrors []string          `json:"validation_errors,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// NewErrorView renders err. Errors that did not come from the engine are reported as INTERNAL.
func NewErrorView(err error) ErrorView {
	var e *engine.Error
	if errors.As(err, &e) {
		return ErrorView{
			Code:             e.Code,
			Class:            e.Class,
			Message:          e.Message,
			Details:          e.Details,
			ValidationErrors: e.ValidationErrors,
			Timestamp:        e.Timestamp,
		}
	}
	var invalid *InvalidPayloadError
	if errors.As(err, &invalid) {
		return ErrorView{
			Code:             engine.ErrCodeValidationFailed,
			Class:            engine.ClassValidation,
			Message:          "Payload failed schema validation",
			ValidationErrors: invalid.Problems,
			Timestamp:        time.Now().UTC(),
		}
	}
	return ErrorView{Code: "INTERNAL", Message: err.Error(), Timestamp: time.Now().UTC()}
}
