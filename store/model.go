package store

import (
	"time"

	"gorm.io/datatypes"

	"github.com/minexpert/bidwar/core"
)

// ProjectRecord is a project row.
type ProjectRecord struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	BudgetMin float64
	BudgetMax float64
	Currency  string
	Timeline  string
	Deadline  time.Time
	MaxBids   int
	Status    string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProjectRecord) TableName() string { return "projects" }

// BidRecord is the latest snapshot of a bid, consultant identity included.
type BidRecord struct {
	ID           string `gorm:"primaryKey"`
	ProjectID    string `gorm:"index"`
	ConsultantID string `gorm:"index"`
	AnonymousID  string
	Price        float64
	Timeline     string
	Description  string
	ValueAdds    datatypes.JSONSlice[string]
	CaseStudies  datatypes.JSONSlice[core.CaseStudy]
	Status       string
	Rank         int
	Confidence   float64
	Scores       datatypes.JSONType[core.ScoreBreakdown]
	Sequence     int64
	SubmittedAt  time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (BidRecord) TableName() string { return "bids" }

// EventRecord is one entry of a project's append-only event log. Payload holds
// the bidapi.EventView JSON, so it carries no consultant identity.
type EventRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID  string `gorm:"index"`
	Type       string
	BidID      string
	Payload    datatypes.JSON
	OccurredAt time.Time
}

func (EventRecord) TableName() string { return "events" }

func projectRecord(p core.Project) ProjectRecord {
	return ProjectRecord{
		ID:        p.ID,
		Title:     p.Title,
		BudgetMin: p.Budget.Min,
		BudgetMax: p.Budget.Max,
		Currency:  p.Budget.Currency,
		Timeline:  p.Timeline,
		Deadline:  p.Deadline,
		MaxBids:   p.MaxBids,
		Status:    string(p.Status),
	}
}

func (r ProjectRecord) project() core.Project {
	return core.Project{
		ID:       r.ID,
		Title:    r.Title,
		Budget:   core.Budget{Min: r.BudgetMin, Max: r.BudgetMax, Currency: r.Currency},
		Timeline: r.Timeline,
		Deadline: r.Deadline,
		MaxBids:  r.MaxBids,
		Status:   core.ProjectStatus(r.Status),
	}
}

func bidRecord(b core.Bid) BidRecord {
	return BidRecord{
		ID:           b.ID,
		ProjectID:    b.ProjectID,
		ConsultantID: b.ConsultantID,
		AnonymousID:  b.AnonymousID,
		Price:        b.Price,
		Timeline:     b.Timeline,
		Description:  b.Description,
		ValueAdds:    datatypes.NewJSONSlice(b.ValueAdds),
		CaseStudies:  datatypes.NewJSONSlice(b.CaseStudies),
		Status:       string(b.Status),
		Rank:         b.Rank,
		Confidence:   b.Confidence,
		Scores:       datatypes.NewJSONType(b.Scores),
		Sequence:     b.Sequence,
		SubmittedAt:  b.SubmittedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func (r BidRecord) bid() core.Bid {
	bid := core.Bid{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		ConsultantID: r.ConsultantID,
		AnonymousID:  r.AnonymousID,
		Price:        r.Price,
		Timeline:     r.Timeline,
		Description:  r.Description,
		Status:       core.BidStatus(r.Status),
		Rank:         r.Rank,
		Confidence:   r.Confidence,
		Scores:       r.Scores.Data(),
		Sequence:     r.Sequence,
		SubmittedAt:  r.SubmittedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.ValueAdds) > 0 {
		bid.ValueAdds = []string(r.ValueAdds)
	}
	if len(r.CaseStudies) > 0 {
		bid.CaseStudies = []core.CaseStudy(r.CaseStudies)
	}
	return bid
}
