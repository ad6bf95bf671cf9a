package engine

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/logger"
	"github.com/minexpert/bidwar/validation"
)

// MsgConsultantRequired is reported when a submission carries no consultant.
const MsgConsultantRequired = "Consultant ID is required"

// Submission is a consultant's bid payload for Submit and Update.
type Submission struct {
	ConsultantID string
	Price        float64
	Timeline     string
	Description  string
	ValueAdds    []string
	CaseStudies  []core.CaseStudy
}

func (s Submission) candidate() validation.BidCandidate {
	return validation.BidCandidate{
		Price:       s.Price,
		Timeline:    s.Timeline,
		Description: s.Description,
		ValueAdds:   s.ValueAdds,
		CaseStudies: s.CaseStudies,
	}
}

// validate runs the bid validator plus the consultant check and returns every failure.
func (e *Engine) validate(sub Submission, project core.Project) []string {
	var errs []string
	if strings.TrimSpace(sub.ConsultantID) == "" {
		errs = append(errs, MsgConsultantRequired)
	}
	result := validation.ValidateBidWithOptions(sub.candidate(), project, e.validation)
	return append(errs, result.Errors...)
}

// Submit validates a new bid, checks the auction is accepting, stores it, reranks
// the project and queues the changes, all as one step under the project lock.
// Subscribers receive the changes once the lock is released.
//
// Checks run in order: shape validation, AUCTION_CLOSED, DEADLINE_PASSED,
// BID_LIMIT_REACHED, DUPLICATE_BID.
func (e *Engine) Submit(ctx context.Context, projectID string, sub Submission) (bid core.Bid, err error) {
	ctx, span := e.startSpan(ctx, "engine.Submit", projectID)
	defer func() { e.finish(span, "submit", projectID, bid.ID, err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}

	// Directory lookups may hit the network; keep them outside the lock.
	anonymousID := e.anon.GenerateAnonymousID(ctx, sub.ConsultantID, projectID)

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	if errs := e.validate(sub, a.project); len(errs) > 0 {
		return core.Bid{}, newValidationError(errs, now)
	}
	if err := a.checkAccepting(now); err != nil {
		return core.Bid{}, err
	}
	if a.hasLiveBidFrom(sub.ConsultantID) {
		return core.Bid{}, newDuplicateBidError(projectID, now)
	}

	bid = core.Bid{
		ID:           e.newID(),
		ProjectID:    projectID,
		ConsultantID: sub.ConsultantID,
		AnonymousID:  anonymousID,
		Price:        sub.Price,
		Timeline:     sub.Timeline,
		Description:  sub.Description,
		ValueAdds:    sub.ValueAdds,
		CaseStudies:  sub.CaseStudies,
		Status:       core.BidSubmitted,
		SubmittedAt:  now,
		UpdatedAt:    now,
		Sequence:     e.seq.Add(1),
	}
	a.insert(bid.Clone())

	return e.commit(a, core.EventBidSubmitted, bid.ID, now), nil
}

// Update replaces the payload of a live bid. It is a fresh validation and rerank
// cycle; SubmittedAt and the anonymous ID are kept. Only the owning consultant may update.
func (e *Engine) Update(ctx context.Context, projectID, bidID string, sub Submission) (bid core.Bid, err error) {
	_, span := e.startSpan(ctx, "engine.Update", projectID)
	span.SetAttributes(attribute.String("bid.id", bidID))
	defer func() { e.finish(span, "update", projectID, bidID, err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	current, err := e.ownedLiveBid(a, bidID, sub.ConsultantID)
	if err != nil {
		return core.Bid{}, err
	}
	if errs := e.validate(sub, a.project); len(errs) > 0 {
		return core.Bid{}, newValidationError(errs, now)
	}
	if err := a.checkOpen(now); err != nil {
		return core.Bid{}, err
	}

	current.Price = sub.Price
	current.Timeline = sub.Timeline
	current.Description = sub.Description
	current.ValueAdds = sub.ValueAdds
	current.CaseStudies = sub.CaseStudies
	current.UpdatedAt = now
	a.put(current.Clone())

	return e.commit(a, core.EventBidUpdated, bidID, now), nil
}

// Withdraw removes a live bid from ranking. The bid stays stored as WITHDRAWN and
// keeps counting toward the project's bid limit.
func (e *Engine) Withdraw(ctx context.Context, projectID, bidID, consultantID string) (bid core.Bid, err error) {
	_, span := e.startSpan(ctx, "engine.Withdraw", projectID)
	span.SetAttributes(attribute.String("bid.id", bidID))
	defer func() { e.finish(span, "withdraw", projectID, bidID, err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	current, err := e.ownedLiveBid(a, bidID, consultantID)
	if err != nil {
		return core.Bid{}, err
	}

	current.Status = core.BidWithdrawn
	current.UpdatedAt = now
	a.put(current)

	return e.commit(a, core.EventBidWithdrawn, bidID, now), nil
}

// RecordSelection records the owner's choice: the bid becomes ACCEPTED and every
// other live bid REJECTED. The project status is left to the owner; see SetProjectStatus.
// Decisions are refused unless the project is OPEN or IN_REVIEW.
func (e *Engine) RecordSelection(ctx context.Context, projectID, bidID string) (bid core.Bid, err error) {
	_, span := e.startSpan(ctx, "engine.RecordSelection", projectID)
	span.SetAttributes(attribute.String("bid.id", bidID))
	defer func() { e.finish(span, "select", projectID, bidID, err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	if err := a.checkDeciding(now); err != nil {
		return core.Bid{}, err
	}
	selected, err := e.liveBid(a, bidID)
	if err != nil {
		return core.Bid{}, err
	}

	selected.Status = core.BidAccepted
	selected.UpdatedAt = now
	a.put(selected)

	rejected := make([]string, 0, len(a.bids))
	for _, other := range a.bids {
		if other.ID == bidID || other.Status.Terminal() {
			continue
		}
		other.Status = core.BidRejected
		other.UpdatedAt = now
		a.put(other)
		rejected = append(rejected, other.ID)
	}

	changed := a.rerank()

	a.queue(a.events(core.EventBidAccepted, bidID, nil, now)...)
	for _, id := range rejected {
		other, _ := a.get(id)
		a.queue(a.event(core.EventBidRejected, other, now))
	}
	a.queue(e.rankChanges(a, changed, append(rejected, bidID), now)...)

	bid, _ = a.get(bidID)
	return bid.Clone(), nil
}

// RecordRejection records that the owner turned down one bid. The bid leaves the
// ranking; if it was leading, the next live bid takes over. Same status rule as RecordSelection.
func (e *Engine) RecordRejection(ctx context.Context, projectID, bidID string) (bid core.Bid, err error) {
	_, span := e.startSpan(ctx, "engine.RecordRejection", projectID)
	span.SetAttributes(attribute.String("bid.id", bidID))
	defer func() { e.finish(span, "reject", projectID, bidID, err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	if err := a.checkDeciding(now); err != nil {
		return core.Bid{}, err
	}
	current, err := e.liveBid(a, bidID)
	if err != nil {
		return core.Bid{}, err
	}

	current.Status = core.BidRejected
	current.UpdatedAt = now
	a.put(current)

	return e.commit(a, core.EventBidRejected, bidID, now), nil
}

// SetProjectStatus moves the project through its lifecycle. Leaving OPEN stops new bids.
func (e *Engine) SetProjectStatus(ctx context.Context, projectID string, status core.ProjectStatus) (err error) {
	_, span := e.startSpan(ctx, "engine.SetProjectStatus", projectID)
	span.SetAttributes(attribute.String("project.status", string(status)))
	defer func() { e.finish(span, "set_status", projectID, "", err) }()

	a, err := e.auction(projectID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer e.unlock(a)

	now := e.now()
	if !status.Valid() {
		return newInvalidProjectError("unknown status "+string(status), now)
	}
	if a.project.Status == status {
		return nil
	}
	a.project.Status = status
	a.queue(core.Event{Type: core.EventProjectStatusChanged, Project: a.project, Timestamp: now})
	return nil
}

func (e *Engine) liveBid(a *auction, bidID string) (core.Bid, error) {
	now := e.now()
	bid, ok := a.get(bidID)
	if !ok {
		return core.Bid{}, newBidNotFoundError(bidID, now)
	}
	if bid.Status.Terminal() {
		return core.Bid{}, newBidNotEditableError(bidID, string(bid.Status), now)
	}
	return bid, nil
}

func (e *Engine) ownedLiveBid(a *auction, bidID, consultantID string) (core.Bid, error) {
	bid, ok := a.get(bidID)
	if ok && bid.ConsultantID != consultantID {
		return core.Bid{}, newNotBidOwnerError(bidID, e.now())
	}
	return e.liveBid(a, bidID)
}

// commit reranks, queues the primary event plus rank changes, and returns the mutated bid.
func (e *Engine) commit(a *auction, primary core.EventType, bidID string, now time.Time) core.Bid {
	changed := a.rerank()
	a.queue(a.events(primary, bidID, changed, now)...)
	bid, _ := a.get(bidID)
	return bid.Clone()
}

// rankChanges builds rank_changed events for moved bids not already covered by skip.
func (e *Engine) rankChanges(a *auction, changed, skip []string, now time.Time) []core.Event {
	covered := make(map[string]bool, len(skip))
	for _, id := range skip {
		covered[id] = true
	}
	out := make([]core.Event, 0, len(changed))
	for _, id := range changed {
		if covered[id] {
			continue
		}
		if bid, ok := a.get(id); ok {
			out = append(out, a.event(core.EventRankChanged, bid, now))
		}
	}
	return out
}

// unlock releases the project lock and delivers the events queued under it.
// delivery is taken before mu is released so the next mutation's events cannot
// overtake these.
func (e *Engine) unlock(a *auction) {
	pending := a.pending
	a.pending = nil
	if len(pending) == 0 {
		a.mu.Unlock()
		return
	}
	a.delivery.Lock()
	a.mu.Unlock()
	defer a.delivery.Unlock()
	for _, ev := range pending {
		e.bus.publish(ev)
	}
}

func (e *Engine) startSpan(ctx context.Context, name, projectID string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return e.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("project.id", projectID)))
}

// finish records the outcome of a mutating call on the span, metrics and log.
func (e *Engine) finish(span trace.Span, operation, projectID, bidID string, err error) {
	defer span.End()

	fields := logger.Fields{"operation": operation, "project_id": projectID}
	if bidID != "" {
		fields["bid_id"] = bidID
	}

	if err == nil {
		BidsAccepted.WithLabelValues(operation).Inc()
		span.SetStatus(codes.Ok, "")
		e.log.Info("bid operation accepted", fields)
		return
	}

	code := string(CodeOf(err))
	if code == "" {
		code = "INTERNAL"
	}
	BidsRejected.WithLabelValues(operation, code).Inc()
	span.SetAttributes(attribute.String("error.code", code))
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	fields["code"] = code
	e.log.Info("bid operation refused", fields)
}
