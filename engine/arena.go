package engine

import (
	"sync"
	"time"

	"github.com/minexpert/bidwar/core"
)

// auction is one project's slot in the arena. Bids are stored by value in
// submission order and addressed by ID; nothing outside holds a pointer into it.
type auction struct {
	mu      sync.RWMutex
	project core.Project
	bids    []core.Bid
	index   map[string]int

	// pending holds events built under mu. They are delivered after mu is
	// released, under delivery, so subscribers see them in mutation order.
	pending  []core.Event
	delivery sync.Mutex
}

func newAuction(project core.Project) *auction {
	return &auction{
		project: project,
		bids:    make([]core.Bid, 0, project.MaxBids),
		index:   make(map[string]int, project.MaxBids),
	}
}

func (a *auction) insert(bid core.Bid) {
	a.index[bid.ID] = len(a.bids)
	a.bids = append(a.bids, bid)
}

func (a *auction) get(bidID string) (core.Bid, bool) {
	i, ok := a.index[bidID]
	if !ok {
		return core.Bid{}, false
	}
	return a.bids[i], true
}

func (a *auction) put(bid core.Bid) {
	a.bids[a.index[bid.ID]] = bid
}

func (a *auction) snapshot() []core.Bid {
	out := make([]core.Bid, len(a.bids))
	for i, bid := range a.bids {
		out[i] = bid.Clone()
	}
	return out
}

// hasLiveBidFrom reports whether the consultant holds a bid that is neither withdrawn nor decided.
func (a *auction) hasLiveBidFrom(consultantID string) bool {
	for _, bid := range a.bids {
		if bid.ConsultantID == consultantID && !bid.Status.Terminal() {
			return true
		}
	}
	return false
}

// checkOpen runs the status and deadline guards, in that order.
func (a *auction) checkOpen(now time.Time) error {
	if a.project.Status != core.ProjectOpen {
		return newAuctionClosedError(a.project.ID, string(a.project.Status), now)
	}
	if !now.Before(a.project.Deadline) {
		return newDeadlinePassedError(a.project.ID, a.project.Deadline, now)
	}
	return nil
}

// checkDeciding refuses owner decisions unless the project is OPEN or IN_REVIEW.
func (a *auction) checkDeciding(now time.Time) error {
	switch a.project.Status {
	case core.ProjectOpen, core.ProjectInReview:
		return nil
	}
	return newDecisionClosedError(a.project.ID, string(a.project.Status), now)
}

// checkAccepting runs every guard a new bid must pass; the first failure wins.
func (a *auction) checkAccepting(now time.Time) error {
	if err := a.checkOpen(now); err != nil {
		return err
	}
	if len(a.bids) >= a.project.MaxBids {
		return newBidLimitReachedError(a.project.ID, a.project.MaxBids, now)
	}
	return nil
}

// rerank recomputes every bid's rank and status and returns the IDs that moved.
func (a *auction) rerank() []string {
	start := time.Now()
	result := core.RankProject(a.project, a.bids)
	for _, bid := range result.Bids {
		a.put(bid)
	}
	RankDuration.Observe(time.Since(start).Seconds())
	return result.Changed
}

// events builds the event for the mutated bid followed by rank_changed for every
// other bid the recomputation moved.
func (a *auction) events(primary core.EventType, bidID string, changed []string, at time.Time) []core.Event {
	out := make([]core.Event, 0, len(changed)+1)
	if bid, ok := a.get(bidID); ok {
		out = append(out, a.event(primary, bid, at))
	}
	for _, id := range changed {
		if id == bidID {
			continue
		}
		if bid, ok := a.get(id); ok {
			out = append(out, a.event(core.EventRankChanged, bid, at))
		}
	}
	return out
}

// queue records events for delivery once the project lock is released.
func (a *auction) queue(events ...core.Event) {
	a.pending = append(a.pending, events...)
}

func (a *auction) event(t core.EventType, bid core.Bid, at time.Time) core.Event {
	return core.Event{Type: t, Bid: bid.Clone(), Project: a.project, Timestamp: at}
}
