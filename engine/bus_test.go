package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/minexpert/bidwar/core"
)

func drain(ch <-chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSubscribe_FanOut(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))

	first := env.engine.Subscribe("project-1")
	second := env.engine.Subscribe("project-1")
	check.Equal(t, 2, env.engine.SubscriberCount("project-1"))

	bid := env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))

	for _, sub := range []*Subscription{first, second} {
		events := drain(sub.C)
		check.Equal(t, 1, len(events))
		check.Equal(t, core.EventBidSubmitted, events[0].Type)
		check.Equal(t, bid.ID, events[0].Bid.ID)
		check.Equal(t, core.BidLeading, events[0].Bid.Status)
	}
}

func TestSubscribe_ProjectIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))
	env.register(t, testProject("project-2"))

	one := env.engine.Subscribe("project-1")
	two := env.engine.Subscribe("project-2")

	env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))

	check.Equal(t, 1, len(drain(one.C)))
	check.Equal(t, 0, len(drain(two.C)))
}

func TestSubscribe_BeforeRegistration(t *testing.T) {
	env := newTestEnv(t)
	sub := env.engine.Subscribe("project-1")

	env.register(t, testProject("project-1"))
	env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))

	check.Equal(t, 1, len(drain(sub.C)))
}

func TestUnsubscribe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))

	gone := env.engine.Subscribe("project-1")
	stays := env.engine.Subscribe("project-1")
	var calls int
	stop := env.engine.SubscribeFunc("project-1", func(core.Event) { calls++ })

	gone.Unsubscribe()
	gone.Unsubscribe()
	stop()
	stop()
	check.Equal(t, 1, env.engine.SubscriberCount("project-1"))

	env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))

	_, open := <-gone.C
	check.False(t, open)
	check.Equal(t, 0, calls)
	check.Equal(t, 1, len(drain(stays.C)))
}

func TestSubscribeFunc_UnsubscribeDuringDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))

	var seen []core.EventType
	var stop func()
	stop = env.engine.SubscribeFunc("project-1", func(ev core.Event) {
		seen = append(seen, ev.Type)
		stop()
	})

	env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))
	env.submit(t, "project-1", submission("consultant-2", 90000, "3 weeks"))

	check.Equal(t, []core.EventType{core.EventBidSubmitted}, seen)
	check.Equal(t, 0, env.engine.SubscriberCount("project-1"))
}

func TestSubscribeFunc_CallbackReadsProject(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))

	var seen []core.Bid
	env.engine.SubscribeFunc("project-1", func(ev core.Event) {
		bids, err := env.engine.Bids("project-1")
		if err == nil {
			seen = append(seen, bids...)
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.engine.Submit(env.ctx, "project-1", submission("consultant-1", 100000, "3 weeks"))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit did not return while a callback read the project")
	}

	assert.Equal(t, 1, len(seen))
	check.Equal(t, core.BidLeading, seen[0].Status)
	check.Equal(t, 1, seen[0].Rank)
}

func TestSubscribeFunc_DeliveryFollowsMutationOrder(t *testing.T) {
	env := newTestEnv(t)
	project := testProject("project-1")
	project.MaxBids = 25
	env.register(t, project)

	var sequences []int64
	env.engine.SubscribeFunc("project-1", func(ev core.Event) {
		if ev.Type == core.EventBidSubmitted {
			sequences = append(sequences, ev.Bid.Sequence)
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = env.engine.Submit(env.ctx, "project-1", submission(fmt.Sprintf("consultant-%d", i), float64(85000+i*1000), "3 weeks"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, len(sequences))
	for i := 1; i < len(sequences); i++ {
		check.True(t, sequences[i-1] < sequences[i])
	}
}

func TestSubscribeFunc_PanicIsContained(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testProject("project-1"))

	env.engine.SubscribeFunc("project-1", func(core.Event) { panic("listener bug") })
	var delivered int
	env.engine.SubscribeFunc("project-1", func(core.Event) { delivered++ })

	_, err := env.engine.Submit(env.ctx, "project-1", submission("consultant-1", 100000, "3 weeks"))
	assert.NoError(t, err)
	check.Equal(t, 1, delivered)
}

func TestSubscribe_FullBufferDrops(t *testing.T) {
	env := newTestEnv(t, WithSubscriberBuffer(1))
	env.register(t, testProject("project-1"))
	slow := env.engine.Subscribe("project-1")
	fast := env.engine.Subscribe("project-1")

	env.submit(t, "project-1", submission("consultant-1", 100000, "3 weeks"))
	check.Equal(t, 1, len(drain(fast.C)))

	dropped := testutil.ToFloat64(EventsDropped)
	// Does not outrank the leader, so only bid_submitted is published.
	env.submit(t, "project-1", submission("consultant-2", 110000, "4 weeks"))

	check.Equal(t, 1.0, testutil.ToFloat64(EventsDropped)-dropped)
	check.Equal(t, 1, len(drain(slow.C)))
	check.Equal(t, 1, len(drain(fast.C)))
}
