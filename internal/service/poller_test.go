package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"topolab/internal/topology"
)

func TestPollerRebuildsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := &mutableCollector{}
	c.set(endpoints("aa:01"))
	bus := NewEventBus()
	svc := NewTopologyService(topology.NewBuilder(c), nil, bus, nil)

	events := make(chan Event, 16)
	bus.Subscribe(events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPoller(svc, 10*time.Millisecond, nil).Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			assert.Equal(t, EventTopologyUpdated, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not rebuild")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerSurvivesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	fb := &failingBuilder{}
	svc := NewTopologyService(fb, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPoller(svc, 5*time.Millisecond, nil).Run(ctx)
	}()

	require.Eventually(t, func() bool { return fb.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestNewPollerDefaultsInterval(t *testing.T) {
	p := NewPoller(nil, 0, nil)
	assert.Equal(t, DefaultPollInterval, p.interval)
}
