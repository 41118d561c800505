package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func drain(ch <-chan events.StreamEvent) []events.StreamEvent {
	var out []events.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestEventsDeliveredInOrderUntilTerminal(t *testing.T) {
	r := NewRegistry(time.Minute)
	ch, cancel := r.Subscribe("dep-1")
	defer cancel()

	report := r.Reporter("dep-1")
	report.Report(consts.StageCommit, "committing", 10)
	report.Report(consts.StageCommit, "committed", 25)
	r.Complete("dep-1", "live")
	// after the terminal event nothing more is delivered
	report.Report(consts.StageVerify, "late", 100)

	got := drain(ch)
	require.Len(t, got, 3)
	require.Equal(t, events.StreamEvent{Type: "progress", Step: "commit", Message: "committing", Progress: 10}, got[0])
	require.Equal(t, 25, got[1].Progress)
	require.Equal(t, events.StreamEventComplete, got[2].Type)
	require.Equal(t, 0, r.Len())
}

func TestFailIsTerminal(t *testing.T) {
	r := NewRegistry(time.Minute)
	ch, _ := r.Subscribe("dep-1")

	r.Fail("dep-1", errors.New("stage deploy failed"))

	got := drain(ch)
	require.Len(t, got, 1)
	require.Equal(t, events.StreamEventError, got[0].Type)
	require.Equal(t, "stage deploy failed", got[0].Message)
}

func TestPublishToUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Publish("nobody", events.StreamEvent{Type: events.StreamEventProgress})
	r.Complete("nobody", "done")
	require.Equal(t, 0, r.Len())
	require.Nil(t, r.Reporter(""))
}

func TestCancelRemovesEntry(t *testing.T) {
	r := NewRegistry(time.Minute)
	ch, cancel := r.Subscribe("dep-1")
	require.Equal(t, 1, r.Len())

	cancel()
	cancel()
	require.Equal(t, 0, r.Len())
	_, open := <-ch
	require.False(t, open)
}

func TestResubscribeReplacesPrevious(t *testing.T) {
	r := NewRegistry(time.Minute)
	first, cancelFirst := r.Subscribe("dep-1")
	second, cancelSecond := r.Subscribe("dep-1")
	defer cancelSecond()

	_, open := <-first
	require.False(t, open)

	// cancelling the stale subscription keeps the new one
	cancelFirst()
	require.Equal(t, 1, r.Len())

	r.Complete("dep-1", "ok")
	require.Len(t, drain(second), 1)
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	c := &clock{now: time.Unix(1700000000, 0)}
	r := NewRegistry(time.Minute, WithClock(c.Now))

	idle, _ := r.Subscribe("idle")
	active, cancelActive := r.Subscribe("active")
	defer cancelActive()

	c.Advance(45 * time.Second)
	r.Publish("active", events.StreamEvent{Type: events.StreamEventProgress})
	c.Advance(30 * time.Second)

	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 1, r.Len())
	_, open := <-idle
	require.False(t, open)
	require.Len(t, active, 1)
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	r := NewRegistry(time.Minute, WithBuffer(1))
	ch, cancel := r.Subscribe("dep-1")
	defer cancel()

	r.Publish("dep-1", events.StreamEvent{Type: events.StreamEventProgress, Progress: 1})
	r.Publish("dep-1", events.StreamEvent{Type: events.StreamEventProgress, Progress: 2})

	require.Len(t, ch, 1)
	require.Equal(t, 1, (<-ch).Progress)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := NewRegistry(time.Minute)
	require.Error(t, r.Start("not a schedule"))
	require.NoError(t, r.Start("@every 1h"))
	r.Stop()
}
