package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/robfig/cron/v3"
)

const defaultBuffer = 64

type entry struct {
	ch       chan events.StreamEvent
	lastSeen time.Time
	closed   bool
}

func (e *entry) close() {
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Registry maps deployment ids to the stream of a single subscriber. Events for ids
// nobody subscribed to are dropped.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	buffer  int
	now     func() time.Time
	cron    *cron.Cron
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithBuffer(size int) Option {
	return func(r *Registry) { r.buffer = size }
}

func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		buffer:  defaultBuffer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe replaces any previous subscriber of id, closing its channel. The returned
// func unsubscribes and is safe to call more than once.
func (r *Registry) Subscribe(id string) (<-chan events.StreamEvent, func()) {
	e := &entry{ch: make(chan events.StreamEvent, r.buffer), lastSeen: r.now()}

	r.mu.Lock()
	if prev, ok := r.entries[id]; ok {
		prev.close()
	}
	r.entries[id] = e
	r.mu.Unlock()

	return e.ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.entries[id]; ok && current == e {
			delete(r.entries, id)
		}
		e.close()
	}
}

// Publish never blocks; a full subscriber buffer drops the event.
func (r *Registry) Publish(id string, event events.StreamEvent) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.closed {
		return
	}
	e.lastSeen = r.now()
	select {
	case e.ch <- event:
	default:
		slog.Warn("progress subscriber is slow, dropping event", "deployment", id, "type", event.Type)
	}
	if event.Terminal() {
		e.close()
		delete(r.entries, id)
	}
}

func (r *Registry) Reporter(id string) events.ProgressFunc {
	if id == "" {
		return nil
	}
	return func(p events.Progress) {
		r.Publish(id, events.FromProgress(p))
	}
}

func (r *Registry) Complete(id, message string) {
	r.Publish(id, events.StreamEvent{Type: events.StreamEventComplete, Message: message, Progress: 100})
}

func (r *Registry) Fail(id string, err error) {
	r.Publish(id, events.StreamEvent{Type: events.StreamEventError, Message: err.Error()})
}

// Sweep evicts entries without activity for longer than the ttl and returns how many.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	var evicted int
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			e.close()
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("evicted idle progress streams", "count", evicted)
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Start schedules Sweep with a cron schedule such as "@every 30s".
func (r *Registry) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q, %v", schedule, err)
	}
	c.Start()
	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	return nil
}

// Stop halts the sweep and closes every open stream.
func (r *Registry) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	for id, e := range r.entries {
		e.close()
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
