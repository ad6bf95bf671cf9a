package core

import (
	"fmt"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project. Only ProjectOpen accepts bids.
type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "OPEN"
	ProjectInReview   ProjectStatus = "IN_REVIEW"
	ProjectAssigned   ProjectStatus = "ASSIGNED"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectCompleted  ProjectStatus = "COMPLETED"
	ProjectCancelled  ProjectStatus = "CANCELLED"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectInReview, ProjectAssigned, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	BidDraft       BidStatus = "DRAFT"
	BidSubmitted   BidStatus = "SUBMITTED"
	BidUnderReview BidStatus = "UNDER_REVIEW"
	BidLeading     BidStatus = "LEADING"
	BidOutbid      BidStatus = "OUTBID"
	BidWithdrawn   BidStatus = "WITHDRAWN"
	BidAccepted    BidStatus = "ACCEPTED"
	BidRejected    BidStatus = "REJECTED"
)

// Terminal reports whether the owner's decision or a withdrawal has settled the bid.
func (s BidStatus) Terminal() bool {
	return s == BidWithdrawn || s == BidAccepted || s == BidRejected
}

// Rankable reports whether the bid takes part in ranking at all. Withdrawn and
// rejected bids are out of the running; drafts were never in it.
func (s BidStatus) Rankable() bool {
	return s != BidWithdrawn && s != BidDraft && s != BidRejected
}

// Budget is the inclusive price band a project accepts.
type Budget struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// Mid returns the midpoint of the band.
func (b Budget) Mid() float64 {
	return (b.Min + b.Max) / 2
}

// Project is a posted piece of work consultants bid on.
type Project struct {
	ID       string        `json:"id"`
	Title    string        `json:"title,omitempty"`
	Budget   Budget        `json:"budget"`
	Timeline string        `json:"timeline"`
	Deadline time.Time     `json:"deadline"`
	MaxBids  int           `json:"max_bids"`
	Status   ProjectStatus `json:"status"`
}

// Validate reports structural problems with a project definition.
func (p Project) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ID) == "" {
		problems = append(problems, "id is required")
	}
	if p.Budget.Min <= 0 {
		problems = append(problems, "budget min must be greater than 0")
	}
	if p.Budget.Max < p.Budget.Min {
		problems = append(problems, "budget max must not be below budget min")
	}
	if p.MaxBids <= 0 {
		problems = append(problems, "max bids must be greater than 0")
	}
	if p.Deadline.IsZero() {
		problems = append(problems, "deadline is required")
	}
	if !p.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", p.Status))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid project: %s", strings.Join(problems, "; "))
	}
	return nil
}

// CaseStudy is prior work a consultant attaches to a bid.
type CaseStudy struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Outcome     string   `json:"outcome,omitempty" yaml:"outcome"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}

// ScoreBreakdown holds the per-factor scores behind a bid's composite.
type ScoreBreakdown struct {
	Price     float64 `json:"price"`
	Timeline  float64 `json:"timeline"`
	Value     float64 `json:"value"`
	Composite float64 `json:"composite"`
}

// Bid is a consultant's offer on a project.
// ConsultantID identifies the bidder and never leaves the process; outward views carry AnonymousID.
type Bid struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	ConsultantID string         `json:"consultant_id"`
	AnonymousID  string         `json:"anonymous_id"`
	Price        float64        `json:"price"`
	Timeline     string         `json:"timeline"`
	Description  string         `json:"description"`
	ValueAdds    []string       `json:"value_adds,omitempty"`
	CaseStudies  []CaseStudy    `json:"case_studies,omitempty"`
	Status       BidStatus      `json:"status"`
	Rank         int            `json:"rank"`
	Confidence   float64        `json:"confidence"`
	Scores       ScoreBreakdown `json:"scores"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Sequence is the arena insertion order, used when SubmittedAt collides.
	Sequence int64 `json:"sequence"`
}

// Clone returns a deep copy so callers never share slices with the arena.
func (b Bid) Clone() Bid {
	out := b
	if b.ValueAdds != nil {
		out.ValueAdds = append([]string(nil), b.ValueAdds...)
	}
	if b.CaseStudies != nil {
		out.CaseStudies = make([]CaseStudy, len(b.CaseStudies))
		for i, cs := range b.CaseStudies {
			out.CaseStudies[i] = cs
			if cs.Tags != nil {
				out.CaseStudies[i].Tags = append([]string(nil), cs.Tags...)
			}
		}
	}
	return out
}

// EventType names a bid-state change delivered to subscribers.
type EventType string

const (
	EventBidSubmitted         EventType = "bid_submitted"
	EventBidUpdated           EventType = "bid_updated"
	EventBidWithdrawn         EventType = "bid_withdrawn"
	EventRankChanged          EventType = "rank_changed"
	EventBidAccepted          EventType = "bid_accepted"
	EventBidRejected          EventType = "bid_rejected"
	EventProjectStatusChanged EventType = "project_status_changed"
)

// Event is a single bid-state change for one project.
// Bid is the zero value for project-level events.
type Event struct {
	Type      EventType `json:"type"`
	Bid       Bid       `json:"bid"`
	Project   Project   `json:"project"`
	Timestamp time.Time `json:"timestamp"`
}

// RankingResult is the outcome of ranking every bid on a project.
type RankingResult struct {
	// Bids holds every input bid, annotated, in rank order with unranked bids last.
	Bids []Bid

	// Leader is the rank-1 bid (nil if no bid is rankable). It is LEADING unless
	// every ranked bid is already ACCEPTED.
	Leader *Bid

	// RunnerUp is the rank-2 bid (nil if fewer than 2 rankable bids)
	RunnerUp *Bid

	// Changed lists IDs of bids whose rank, status or confidence moved.
	Changed []string
}

// ExcludedBid is a bid left out of ranking, with the reason.
type ExcludedBid struct {
	BidID  string `json:"bid_id"`
	Reason string `json:"reason"`
}
