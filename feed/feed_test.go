package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/redis/go-redis/v9"

	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/engine"
	"github.com/minexpert/bidwar/logger"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*miniredis.Miniredis, *Publisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewPublisher(client, "", logger.NewTestLogger(t))
}

func testProject() core.Project {
	return core.Project{
		ID:       "project-1",
		Title:    "Haul road design review",
		Budget:   core.Budget{Min: 85000, Max: 120000},
		Timeline: "4 weeks",
		Deadline: start.Add(24 * time.Hour),
		MaxBids:  3,
		Status:   core.ProjectOpen,
	}
}

func receive(t *testing.T, sub *miniredis.Subscriber) bidapi.EventView {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		var view bidapi.EventView
		assert.NoError(t, json.Unmarshal([]byte(msg.Message), &view))
		return view
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return bidapi.EventView{}
}

func TestPublisher_Channel(t *testing.T) {
	_, p := setup(t)
	check.Equal(t, "bidwar:project:project-1", p.Channel("project-1"))

	custom := NewPublisher(nil, "mine:", nil)
	check.Equal(t, "mine:project-1", custom.Channel("project-1"))
}

func TestMirror_PublishesEngineEvents(t *testing.T) {
	mr, p := setup(t)
	sub := mr.NewSubscriber()
	defer sub.Close()
	sub.Subscribe(p.Channel("project-1"))

	e := engine.New(engine.WithClock(func() time.Time { return start }), engine.WithLogger(logger.NewTestLogger(t)))
	defer e.Close()
	assert.NoError(t, e.RegisterProject(testProject()))
	e.SubscribeFunc("project-1", p.Mirror(context.Background()))

	bid, err := e.Submit(context.Background(), "project-1", engine.Submission{
		ConsultantID: "consultant-1",
		Price:        100000,
		Timeline:     "3 weeks",
		Description:  "Haul road geometry and drainage review against fleet specifications.",
	})
	assert.NoError(t, err)

	view := receive(t, sub)
	check.Equal(t, core.EventBidSubmitted, view.Type)
	check.Equal(t, "project-1", view.ProjectID)
	assert.NotNil(t, view.Bid)
	check.Equal(t, bid.ID, view.Bid.ID)
	check.Equal(t, "EXPERT-MC-0062", view.Bid.AnonymousID)
}

func TestPublish_ReportsReceivers(t *testing.T) {
	mr, p := setup(t)
	ev := core.Event{Type: core.EventProjectStatusChanged, Project: testProject(), Timestamp: start}

	n, err := p.Publish(context.Background(), ev)
	assert.NoError(t, err)
	check.Equal(t, int64(0), n)

	sub := mr.NewSubscriber()
	defer sub.Close()
	sub.Subscribe(p.Channel("project-1"))

	n, err = p.Publish(context.Background(), ev)
	assert.NoError(t, err)
	check.Equal(t, int64(1), n)
	check.Equal(t, core.EventProjectStatusChanged, receive(t, sub).Type)
}

func TestMirror_RedisDownDoesNotPanic(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	p := NewPublisher(client, "", logger.NewTestLogger(t))

	mirror := p.Mirror(context.Background())
	mirror(core.Event{Type: core.EventProjectStatusChanged, Project: testProject(), Timestamp: start})
}

func TestFollow(t *testing.T) {
	mr, p := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan bidapi.EventView, 4)
	done := make(chan error, 1)
	go func() {
		done <- p.Follow(ctx, "project-1", func(v bidapi.EventView) { got <- v })
	}()

	channel := p.Channel("project-1")
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(channel)[channel] == 0 {
		if time.Now().After(deadline) {
			t.Fatal("follower never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mr.Publish(channel, "not json")
	_, err := p.Publish(ctx, core.Event{Type: core.EventProjectStatusChanged, Project: testProject(), Timestamp: start})
	assert.NoError(t, err)

	select {
	case view := <-got:
		check.Equal(t, core.EventProjectStatusChanged, view.Type)
		check.Equal(t, "project-1", view.ProjectID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event followed")
	}

	cancel()
	select {
	case err := <-done:
		check.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not stop")
	}
}
