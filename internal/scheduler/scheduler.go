// Package scheduler decides when telemetry reaches the screen.
//
// Every input (socket lifecycle, messages, frame ticks, timer ticks,
// scrolling, focus) is an Event handed to Scheduler.Dispatch on a single
// goroutine. Dispatch updates the rolling chart history immediately, lets
// the throttle decide whether a GPU's text may refresh, and parks the
// latest update per GPU in the queue. All renderer calls for a frame happen
// inside one FrameTick. What Dispatch cannot do itself (dial, close,
// schedule a tick) it returns as Effects for the caller to run.
package scheduler

import (
	"fmt"
	"time"

	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/gpuhot/gpuhot/internal/metrics"
	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// Renderer applies flushed updates to the display.
type Renderer interface {
	// RegisterEntity is called once, in a flush, before a GPU's first
	// RenderEntity. It is called again if the GPU reappears after removal.
	RegisterEntity(u telemetry.EntityUpdate)
	// RenderEntity applies the latest snapshot. Charts always redraw;
	// text only when updateText is set. Rendering a GPU the renderer no
	// longer knows must be a no-op.
	RenderEntity(u telemetry.EntityUpdate, updateText bool) error
	// RenderSystem applies the system-wide update.
	RenderSystem(u telemetry.SystemUpdate) error
	// RemoveEntity drops a GPU whose node went offline.
	RemoveEntity(key string)
	// ConnectionStateChanged reports connection transitions. err is set
	// for the transition to GivenUp.
	ConnectionStateChanged(from, to conn.State, err error)
}

// Observer sees every snapshot the scheduler accepts, including those
// that arrive while updates are suppressed.
type Observer interface {
	SnapshotAccepted(u telemetry.EntityUpdate, at time.Time)
}

// Config holds the scheduling parameters.
type Config struct {
	ThrottleInterval time.Duration
	ScrollPause      time.Duration
	HistorySize      int
	Reconnect        conn.Policy
}

// Stats counts scheduler activity since New.
type Stats struct {
	Messages   int
	Malformed  int
	Flushes    int
	Rendered   int
	Throttled  int
	Suppressed int
	Errors     int
}

// Scheduler owns the connection policy, update queue, throttle, scroll
// suppressor and series store. It is not safe for concurrent use.
type Scheduler struct {
	cfg       Config
	renderer  Renderer
	observers []Observer
	log       logger.Logger
	now       func() time.Time

	conn     *conn.Manager
	queue    *UpdateQueue
	throttle *Throttle
	scroll   *ScrollSuppressor
	store    *series.Store

	registered map[string]bool
	nodes      map[string]map[string]struct{}

	stats   Stats
	started bool
	stopped bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithClock sets the time source used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithObserver adds an observer of accepted snapshots.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithStore uses an existing series store.
func WithStore(st *series.Store) Option {
	return func(s *Scheduler) { s.store = st }
}

// New creates a Scheduler. Call Init to start connecting.
func New(cfg Config, r Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		renderer:   r,
		log:        logger.NewEnvLogger("[scheduler]"),
		now:        time.Now,
		queue:      NewUpdateQueue(),
		throttle:   NewThrottle(cfg.ThrottleInterval),
		scroll:     NewScrollSuppressor(cfg.ScrollPause),
		registered: make(map[string]bool),
		nodes:      make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = series.NewStore(cfg.HistorySize)
	}
	s.conn = conn.NewManager(cfg.Reconnect,
		conn.WithLogger(s.log),
		conn.OnStateChange(s.connectionStateChanged),
	)
	return s
}

// Init makes the first connection attempt.
func (s *Scheduler) Init() []Effect {
	if s.started || s.stopped {
		return nil
	}
	s.started = true
	return fromConnActions(s.conn.Start())
}

// Shutdown cancels timers, discards pending updates and closes the socket.
// Dispatch ignores every event afterwards.
func (s *Scheduler) Shutdown() []Effect {
	if s.stopped {
		return nil
	}
	effects := fromConnActions(s.conn.Stop())
	s.stopped = true
	s.queue.Reset()
	s.scroll.Reset()
	return effects
}

// Dispatch handles one event and returns the effects to run.
func (s *Scheduler) Dispatch(ev Event) []Effect {
	if s.stopped {
		return nil
	}

	switch e := ev.(type) {
	case SocketOpened:
		return fromConnActions(s.conn.Opened(e.Conn))

	case SocketClosed:
		return fromConnActions(s.conn.Closed(e.Conn, e.Err))

	case SocketError:
		s.conn.Errored(e.Conn, e.Err)
		return nil

	case MessageReceived:
		if e.Conn != s.conn.Current() || s.conn.State() != conn.Connected {
			s.log.Debug("dropping message from inactive socket %d", e.Conn)
			return nil
		}
		return s.handleMessage(e.Data, s.at(e.At))

	case SnapshotReceived:
		return s.apply(&telemetry.Message{Entities: []telemetry.EntityUpdate{e.Entity}}, s.at(e.At))

	case FrameTick:
		s.flush(e.Frame)
		return nil

	case RetryTick:
		effects := fromConnActions(s.conn.RetryTick(e.Timer))
		countReconnects(effects)
		return effects

	case Scrolled:
		if check, ok := s.scroll.Scrolled(s.at(e.At)); ok {
			return []Effect{check}
		}
		return nil

	case ScrollSettled:
		if check, ok := s.scroll.Settle(e.Timer, s.at(e.At)); ok {
			return []Effect{check}
		}
		return nil

	case VisibilityRegained, FocusGained:
		effects := fromConnActions(s.conn.Resume())
		countReconnects(effects)
		return effects

	case ManualRetry:
		effects := fromConnActions(s.conn.ManualRetry())
		countReconnects(effects)
		return effects

	default:
		s.log.Warn("unhandled event %T", ev)
		return nil
	}
}

// Store returns the series store.
func (s *Scheduler) Store() *series.Store { return s.store }

// ConnectionState returns the connection state.
func (s *Scheduler) ConnectionState() conn.State { return s.conn.State() }

// ReconnectAttempts returns the retries made since the last open.
func (s *Scheduler) ReconnectAttempts() int { return s.conn.Attempts() }

// Suppressed reports whether scroll suppression is active.
func (s *Scheduler) Suppressed() bool { return s.scroll.Active() }

// Pending returns the number of queued updates.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// FrameScheduled reports whether a frame is outstanding.
func (s *Scheduler) FrameScheduled() bool { return s.queue.FrameScheduled() }

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// Config returns the scheduler configuration.
func (s *Scheduler) Config() Config { return s.cfg }

func (s *Scheduler) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *Scheduler) handleMessage(data []byte, at time.Time) []Effect {
	msg, err := telemetry.Decode(data)
	if err != nil {
		s.stats.Malformed++
		metrics.MalformedMessages.Inc()
		s.log.Warn("dropping message: %s", errors.Summary(err))
		return nil
	}
	for _, inv := range msg.Invalid {
		metrics.MalformedEntities.Inc()
		s.log.Warn("skipping snapshot for %s: %v", inv.Key, inv.Err)
	}
	s.stats.Messages++
	metrics.MessagesReceived.Inc()
	return s.apply(msg, at)
}

func (s *Scheduler) apply(msg *telemetry.Message, at time.Time) []Effect {
	if s.scroll.Active() {
		for _, u := range msg.Entities {
			s.record(u, at)
			s.stats.Suppressed++
			metrics.SnapshotsSuppressed.Inc()
		}
		return nil
	}

	for _, node := range msg.OfflineNodes {
		s.removeNode(node)
	}

	var effects []Effect
	for _, u := range msg.Entities {
		s.record(u, at)

		key := EntityKey(u.Key)
		updateText := s.throttle.Allow(key, at)
		if updateText {
			metrics.TextUpdates.WithLabelValues(metrics.ResultRendered).Inc()
		} else {
			s.stats.Throttled++
			metrics.TextUpdates.WithLabelValues(metrics.ResultThrottled).Inc()
		}

		entity := u
		effects = s.enqueue(effects, PendingUpdate{Key: key, Entity: &entity, UpdateText: updateText, At: at})
	}

	if msg.System != nil && s.throttle.Allow(SystemKey, at) {
		sys := *msg.System
		effects = s.enqueue(effects, PendingUpdate{Key: SystemKey, System: &sys, UpdateText: true, At: at})
	}

	return effects
}

func (s *Scheduler) enqueue(effects []Effect, u PendingUpdate) []Effect {
	if frame, ok := s.queue.Enqueue(u); ok {
		effects = append(effects, RequestFrame{Frame: frame})
	}
	return effects
}

// record appends a snapshot to the series store, seeding the entity from
// it on first sight.
func (s *Scheduler) record(u telemetry.EntityUpdate, at time.Time) {
	values := ChartValues(u.Snapshot)
	if s.store.Initialize(u.Key, at, values) {
		metrics.EntitiesTracked.Set(float64(s.store.Count()))
	} else {
		s.store.AppendAll(u.Key, values, at)
	}
	s.trackNode(u)
	for _, o := range s.observers {
		o.SnapshotAccepted(u, at)
	}
}

func (s *Scheduler) trackNode(u telemetry.EntityUpdate) {
	if u.Node == "" {
		return
	}
	keys, ok := s.nodes[u.Node]
	if !ok {
		keys = make(map[string]struct{})
		s.nodes[u.Node] = keys
	}
	keys[u.Key] = struct{}{}
}

func (s *Scheduler) removeNode(node string) {
	keys, ok := s.nodes[node]
	if !ok {
		return
	}
	delete(s.nodes, node)
	for key := range keys {
		s.removeEntity(key)
	}
	s.log.Info("node %s went offline, removed %d GPUs", node, len(keys))
}

func (s *Scheduler) removeEntity(key string) {
	s.store.Remove(key)
	metrics.EntitiesTracked.Set(float64(s.store.Count()))
	s.throttle.Forget(EntityKey(key))
	s.queue.Drop(EntityKey(key))
	if s.registered[key] {
		delete(s.registered, key)
		s.renderer.RemoveEntity(key)
	}
}

func (s *Scheduler) flush(frame FrameID) {
	updates, ok := s.queue.Flush(frame)
	if !ok {
		s.log.Debug("ignoring stale frame %d", frame)
		return
	}

	s.stats.Flushes++
	metrics.Flushes.Inc()
	metrics.FlushSize.Observe(float64(len(updates)))

	for _, u := range updates {
		if err := s.applyUpdate(u); err != nil {
			s.stats.Errors++
			metrics.RenderErrors.Inc()
			s.log.Error("rendering %s: %v", u.Key, err)
		}
	}
}

// applyUpdate runs the renderer for one update. A failure, including a
// panic, affects only this update.
func (s *Scheduler) applyUpdate(u PendingUpdate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()

	if u.System != nil {
		return s.renderer.RenderSystem(*u.System)
	}
	if u.Entity == nil {
		return nil
	}

	key := u.Entity.Key
	if !s.registered[key] {
		s.renderer.RegisterEntity(*u.Entity)
		s.registered[key] = true
	}
	if err := s.renderer.RenderEntity(*u.Entity, u.UpdateText); err != nil {
		return err
	}
	s.stats.Rendered++
	return nil
}

func (s *Scheduler) connectionStateChanged(from, to conn.State, err error) {
	metrics.SetConnectionState(to.String(), connStates)
	if s.renderer != nil {
		s.renderer.ConnectionStateChanged(from, to, err)
	}
}

var connStates = []string{
	conn.Disconnected.String(),
	conn.Connecting.String(),
	conn.Connected.String(),
	conn.Reconnecting.String(),
	conn.GivenUp.String(),
}

func countReconnects(effects []Effect) {
	for _, e := range effects {
		if _, ok := e.(Dial); ok {
			metrics.ReconnectAttempts.Inc()
		}
	}
}
