// Package feed mirrors engine events onto Redis pub/sub so other processes can
// follow a project's auction. Messages are bidapi.EventView JSON.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/logger"
)

const (
	DefaultChannelPrefix  = "bidwar:project:"
	DefaultPublishTimeout = 2 * time.Second
)

// Publisher writes events to one Redis channel per project.
type Publisher struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	log     logger.Logger
}

// NewPublisher returns a Publisher. An empty prefix selects DefaultChannelPrefix.
func NewPublisher(client *redis.Client, prefix string, log logger.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Publisher{client: client, prefix: prefix, timeout: DefaultPublishTimeout, log: log}
}

// Channel returns the Redis channel carrying a project's events.
func (p *Publisher) Channel(projectID string) string {
	return p.prefix + projectID
}

// Publish sends ev and returns the number of Redis subscribers that received it.
func (p *Publisher) Publish(ctx context.Context, ev core.Event) (int64, error) {
	payload, err := json.Marshal(bidapi.NewEventView(ev))
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}
	n, err := p.client.Publish(ctx, p.Channel(ev.Project.ID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish event: %w", err)
	}
	return n, nil
}

// Mirror returns a subscriber callback that republishes every event. The next
// mutation of the project waits for delivery, so each publish is bounded by a
// timeout and failures are logged rather than returned.
func (p *Publisher) Mirror(ctx context.Context) func(core.Event) {
	return func(ev core.Event) {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if _, err := p.Publish(pctx, ev); err != nil {
			p.log.Warn("failed to mirror event", logger.Fields{
				"project_id": ev.Project.ID,
				"event_type": string(ev.Type),
				"error":      err.Error(),
			})
		}
	}
}

// Follow subscribes to a project's channel and calls fn for each decoded event
// until ctx is cancelled. Undecodable messages are logged and skipped.
func (p *Publisher) Follow(ctx context.Context, projectID string, fn func(bidapi.EventView)) error {
	sub := p.client.Subscribe(ctx, p.Channel(projectID))
	defer sub.Close()

	// Wait for the subscription to be confirmed so no early message is missed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.Channel(projectID), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var view bidapi.EventView
			if err := json.Unmarshal([]byte(msg.Payload), &view); err != nil {
				p.log.Warn("skipping undecodable feed message", logger.Fields{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}
			fn(view)
		}
	}
}
