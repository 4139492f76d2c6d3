package activation

import (
	"context"
	"sync"
	"time"

	"github.com/promptguard-ai/promptguard/internal/redact"
)

// Sink consumes audit events (stdout, file, webhook).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// deliverTimeout bounds a single sink delivery so one stuck sink
// cannot stall a worker indefinitely.
const deliverTimeout = 5 * time.Second

// Metrics counts what happened to every event handed to the emitter.
// Drops are additionally counted per verdict action: losing BLOCK
// audit records under load is a different problem than losing ALLOWs,
// and the counters must show which one is happening.
type Metrics struct {
	enqueued        uint64
	dropped         uint64
	droppedByAction map[string]uint64
	sinkSuccess     map[string]uint64
	sinkFailure     map[string]uint64
}

func newMetrics(sinks []Sink) *Metrics {
	m := &Metrics{
		droppedByAction: make(map[string]uint64),
		sinkSuccess:     make(map[string]uint64, len(sinks)),
		sinkFailure:     make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		m.sinkSuccess[s.Name()] = 0
		m.sinkFailure[s.Name()] = 0
	}
	return m
}

func (m *Metrics) copy() Metrics {
	out := Metrics{
		enqueued:        m.enqueued,
		dropped:         m.dropped,
		droppedByAction: make(map[string]uint64, len(m.droppedByAction)),
		sinkSuccess:     make(map[string]uint64, len(m.sinkSuccess)),
		sinkFailure:     make(map[string]uint64, len(m.sinkFailure)),
	}
	for k, v := range m.droppedByAction {
		out.droppedByAction[k] = v
	}
	for k, v := range m.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range m.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

func (m *Metrics) Enqueued() uint64 { return m.enqueued }
func (m *Metrics) Dropped() uint64  { return m.dropped }

// DroppedFor reports how many events carrying the given verdict action
// were dropped.
func (m *Metrics) DroppedFor(action string) uint64 {
	if m == nil {
		return 0
	}
	return m.droppedByAction[action]
}

func (m *Metrics) SinkSuccess(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkSuccess[name]
}

func (m *Metrics) SinkFailure(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkFailure[name]
}

// Emitter fans audit events out to sinks from a bounded queue. Emit
// never blocks the request path: when the queue is full the event is
// dropped and counted, not delivered late.
type Emitter struct {
	events chan *Event
	sinks  []Sink
	drain  time.Duration

	statsMu sync.Mutex
	stats   *Metrics

	stateMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

// EmitterConfig controls queue sizing and shutdown behavior.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// NewEmitter starts background workers delivering events to the sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	drain := cfg.ShutdownTimeout
	if drain <= 0 {
		drain = 2 * time.Second
	}

	e := &Emitter{
		events: make(chan *Event, queueSize),
		sinks:  sinks,
		drain:  drain,
		stats:  newMetrics(sinks),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues the event, or drops it when the emitter is closed or
// the queue is full.
func (e *Emitter) Emit(ctx context.Context, ev *Event) {
	if e == nil || ev == nil {
		return
	}

	// The read lock keeps Close from closing the channel between the
	// closed check and the send.
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	if e.closed {
		e.countDrop(ev)
		return
	}
	select {
	case e.events <- ev:
		e.statsMu.Lock()
		e.stats.enqueued++
		e.statsMu.Unlock()
	default:
		e.countDrop(ev)
	}
}

func (e *Emitter) countDrop(ev *Event) {
	e.statsMu.Lock()
	e.stats.dropped++
	e.stats.droppedByAction[ev.Action]++
	e.statsMu.Unlock()
}

// Close stops accepting events, waits up to the drain timeout for the
// queue to empty, then closes every sink.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.stateMu.Lock()
	if e.closed {
		e.stateMu.Unlock()
		return
	}
	e.closed = true
	close(e.events)
	e.stateMu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.drain)
	defer cancel()

	select {
	case <-drained:
	case <-ctx.Done():
		redact.Logf("activation: shutdown drain timed out, %d events still queued", len(e.events))
	}

	for _, s := range e.sinks {
		if err := s.Close(ctx); err != nil {
			redact.Logf("activation: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil || e.stats == nil {
		return Metrics{}
	}
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats.copy()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.events {
		for _, s := range e.sinks {
			e.deliver(s, ev)
		}
	}
}

func (e *Emitter) deliver(s Sink, ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := s.Deliver(ctx, ev); err != nil {
		redact.Logf("activation: sink %s failed for request %s: %v", s.Name(), ev.RequestID, err)
		e.statsMu.Lock()
		e.stats.sinkFailure[s.Name()]++
		e.statsMu.Unlock()
		return
	}
	e.statsMu.Lock()
	e.stats.sinkSuccess[s.Name()]++
	e.statsMu.Unlock()
}
