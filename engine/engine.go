// Package engine holds live auctions: it accepts, ranks and withdraws bids
// under a per-project lock and fans every change out to subscribers.
package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/minexpert/bidwar/anonymity"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/logger"
	"github.com/minexpert/bidwar/validation"
)

const tracerName = "github.com/minexpert/bidwar/engine"

// DefaultSubscriberBuffer is the channel capacity of a Subscription.
const DefaultSubscriberBuffer = 64

// Anonymizer derives the public handle for a consultant on a project.
type Anonymizer interface {
	GenerateAnonymousID(ctx context.Context, consultantID, projectID string) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now. Deadlines and timestamps use it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the random bid ID source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithAnonymizer sets how anonymous IDs are derived.
func WithAnonymizer(a Anonymizer) Option {
	return func(e *Engine) { e.anon = a }
}

// WithValidationOptions tunes bid validation, e.g. strict timelines.
func WithValidationOptions(opts validation.Options) Option {
	return func(e *Engine) { e.validation = opts }
}

// WithSubscriberBuffer sets the channel capacity for Subscribe.
func WithSubscriberBuffer(n int) Option {
	return func(e *Engine) { e.buffer = n }
}

// WithTracerProvider sets the OpenTelemetry provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// Engine is the bidding core. Construct it with New and release it with Close.
type Engine struct {
	mu       sync.RWMutex
	auctions map[string]*auction
	closed   bool

	bus        *bus
	seq        atomic.Int64
	now        func() time.Time
	newID      func() string
	anon       Anonymizer
	validation validation.Options
	buffer     int
	log        logger.Logger
	tracer     trace.Tracer
}

// New creates an Engine with no projects.
func New(opts ...Option) *Engine {
	e := &Engine{
		auctions: make(map[string]*auction),
		now:      time.Now,
		newID:    uuid.NewString,
		buffer:   DefaultSubscriberBuffer,
		log:      logger.NewNoOpLogger(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.anon == nil {
		e.anon = anonymity.NewGenerator(nil, nil, e.log)
	}
	if e.buffer < 1 {
		e.buffer = 1
	}
	e.bus = newBus(e.log)
	return e
}

// Close drops every project and subscription. Channel subscribers see their channel closed.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.auctions = make(map[string]*auction)
	e.mu.Unlock()

	e.bus.closeAll()
	e.log.Info("engine closed", nil)
}

// RegisterProject adds a project to the arena, optionally with bids loaded from storage.
// Loaded bids priced outside the budget are dropped and logged; the rest are ranked.
func (e *Engine) RegisterProject(project core.Project, existing ...core.Bid) error {
	now := e.now()
	if err := project.Validate(); err != nil {
		return newInvalidProjectError(err.Error(), now)
	}
	if len(existing) > project.MaxBids {
		return newInvalidProjectError("more stored bids than max bids", now)
	}

	bids, excluded := core.EnforceBudget(existing, project.Budget)
	for _, ex := range excluded {
		e.log.Warn("stored bid dropped on load", logger.Fields{
			"project_id": project.ID,
			"bid_id":     ex.BidID,
			"reason":     ex.Reason,
		})
	}

	a := newAuction(project)
	for _, bid := range bids {
		bid = bid.Clone()
		bid.ProjectID = project.ID
		if bid.Sequence == 0 {
			bid.Sequence = e.seq.Add(1)
		} else {
			e.bumpSequence(bid.Sequence)
		}
		a.insert(bid)
	}
	a.rerank()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return newEngineClosedError(now)
	}
	if _, ok := e.auctions[project.ID]; ok {
		return newDuplicateProjectError(project.ID, now)
	}
	e.auctions[project.ID] = a

	e.log.Info("project registered", logger.Fields{
		"project_id": project.ID,
		"max_bids":   project.MaxBids,
		"bids":       len(bids),
	})
	return nil
}

// bumpSequence keeps the sequence counter ahead of loaded bids.
func (e *Engine) bumpSequence(seen int64) {
	for {
		cur := e.seq.Load()
		if cur >= seen || e.seq.CompareAndSwap(cur, seen) {
			return
		}
	}
}

func (e *Engine) auction(projectID string) (*auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, newEngineClosedError(e.now())
	}
	a, ok := e.auctions[projectID]
	if !ok {
		return nil, newProjectNotFoundError(projectID, e.now())
	}
	return a, nil
}

// Project returns a snapshot of the project definition.
func (e *Engine) Project(projectID string) (core.Project, error) {
	a, err := e.auction(projectID)
	if err != nil {
		return core.Project{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.project, nil
}

// Projects returns snapshots of every registered project, ordered by ID.
func (e *Engine) Projects() []core.Project {
	e.mu.RLock()
	list := make([]*auction, 0, len(e.auctions))
	for _, a := range e.auctions {
		list = append(list, a)
	}
	e.mu.RUnlock()

	out := make([]core.Project, 0, len(list))
	for _, a := range list {
		a.mu.RLock()
		out = append(out, a.project)
		a.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Bid returns a snapshot of one bid.
func (e *Engine) Bid(projectID, bidID string) (core.Bid, error) {
	a, err := e.auction(projectID)
	if err != nil {
		return core.Bid{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	bid, ok := a.get(bidID)
	if !ok {
		return core.Bid{}, newBidNotFoundError(bidID, e.now())
	}
	return bid.Clone(), nil
}

// Bids returns snapshots of every bid on the project in submission order, withdrawn included.
func (e *Engine) Bids(projectID string) ([]core.Bid, error) {
	a, err := e.auction(projectID)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot(), nil
}

// RankedBids returns snapshots in rank order, unranked bids last.
func (e *Engine) RankedBids(projectID string) ([]core.Bid, error) {
	bids, err := e.Bids(projectID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bids, func(i, j int) bool {
		ri, rj := bids[i].Rank, bids[j].Rank
		if ri == 0 || rj == 0 {
			return rj == 0 && ri != 0
		}
		return ri < rj
	})
	return bids, nil
}

// GenerateAnonymousID returns the public handle a consultant bids under on a project.
func (e *Engine) GenerateAnonymousID(ctx context.Context, consultantID, projectID string) string {
	return e.anon.GenerateAnonymousID(ctx, consultantID, projectID)
}

// Subscribe registers a buffered channel for the project's events. Events that
// arrive while the buffer is full are dropped for this subscriber only.
// The project need not be registered yet.
func (e *Engine) Subscribe(projectID string) *Subscription {
	s := &subscriber{projectID: projectID, ch: make(chan core.Event, e.buffer)}
	e.subscribe(s)
	return &Subscription{C: s.ch, sub: s, bus: e.bus}
}

// SubscribeFunc registers a callback for the project's events and returns its unsubscribe func.
// The callback runs synchronously after the project lock is released, in mutation
// order, and receives a copy of the changed state. It may read the project through
// the Engine; it must not mutate the same project, since the next mutation waits for
// delivery to finish. Unsubscribing is idempotent.
func (e *Engine) SubscribeFunc(projectID string, fn func(core.Event)) (unsubscribe func()) {
	s := &subscriber{projectID: projectID, fn: fn}
	e.subscribe(s)
	return func() { e.bus.remove(s) }
}

func (e *Engine) subscribe(s *subscriber) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		s.close()
		return
	}
	e.bus.add(s)
}

// SubscriberCount returns the number of live registrations on a project.
func (e *Engine) SubscriberCount(projectID string) int {
	return e.bus.count(projectID)
}
