// Package transport connects to the telemetry server over a websocket and
// turns socket activity into scheduler events.
//
// The Client does not decide when to connect; it dials when the scheduler
// asks for it and reports back on the Events channel, tagging every event
// with the connection ID it was dialed with.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gpuhot/gpuhot/internal/conn"
	gerrors "github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/gpuhot/gpuhot/internal/scheduler"
)

const (
	// DefaultDialTimeout bounds one handshake.
	DefaultDialTimeout = 5 * time.Second
	// DefaultReadLimit is the largest message accepted. Hub pushes for big
	// clusters exceed the library's 32 KiB default.
	DefaultReadLimit = 4 << 20

	eventBuffer = 64
)

// Client dials the telemetry server on demand.
type Client struct {
	url         string
	dialTimeout time.Duration
	readLimit   int64
	log         logger.Logger
	now         func() time.Time

	events chan scheduler.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[conn.ID]*session
}

type session struct {
	cancel context.CancelFunc
	ws     *websocket.Conn
}

// Option configures a Client.
type Option func(*Client)

// WithDialTimeout sets the handshake timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithReadLimit sets the maximum message size in bytes.
func WithReadLimit(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for the websocket URL.
func New(url string, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:         url,
		dialTimeout: DefaultDialTimeout,
		readLimit:   DefaultReadLimit,
		log:         logger.NewEnvLogger("[transport]"),
		now:         time.Now,
		events:      make(chan scheduler.Event, eventBuffer),
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[conn.ID]*session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the server URL.
func (c *Client) URL() string { return c.url }

// Events delivers socket events in order per connection.
func (c *Client) Events() <-chan scheduler.Event { return c.events }

// Dial starts connecting socket id in the background.
func (c *Client) Dial(id conn.ID) {
	if c.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)

	c.mu.Lock()
	if old, ok := c.sessions[id]; ok {
		old.cancel()
	}
	c.sessions[id] = &session{cancel: cancel}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(ctx, id)
	}()
}

// CloseConn closes socket id with a normal closure.
func (c *Client) CloseConn(id conn.ID) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()
	if !ok {
		return
	}

	if s.ws != nil {
		_ = s.ws.Close(websocket.StatusNormalClosure, "")
	}
	s.cancel()
}

// Close closes every socket and waits for reader goroutines to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	ids := make([]conn.ID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.CloseConn(id)
	}
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Client) run(ctx context.Context, id conn.ID) {
	dialCtx, cancelDial := context.WithTimeout(ctx, c.dialTimeout)
	ws, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancelDial()
	if err != nil {
		err = gerrors.WrapWithCode(err, gerrors.ErrTransport,
			"Cannot connect to "+c.url,
			"Check that the telemetry server is running and reachable")
		c.log.Debug("dial %d failed: %v", id, err)
		c.emit(scheduler.SocketError{Conn: id, Err: err})
		c.emit(scheduler.SocketClosed{Conn: id, Err: err, At: c.now()})
		return
	}
	ws.SetReadLimit(c.readLimit)

	c.mu.Lock()
	s, ok := c.sessions[id]
	if ok {
		s.ws = ws
	}
	c.mu.Unlock()
	if !ok {
		// Closed while the handshake was in flight.
		_ = ws.Close(websocket.StatusNormalClosure, "")
		c.emit(scheduler.SocketClosed{Conn: id, At: c.now()})
		return
	}

	c.emit(scheduler.SocketOpened{Conn: id, At: c.now()})

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if c.forget(id, ws) {
				err = closeError(err)
			} else {
				// CloseConn already dropped the session.
				err = nil
			}
			c.emit(scheduler.SocketClosed{Conn: id, Err: err, At: c.now()})
			return
		}
		c.emit(scheduler.MessageReceived{Conn: id, Data: data, At: c.now()})
	}
}

// closeError returns nil for an orderly close so it is not logged as a failure.
func closeError(err error) error {
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
		return nil
	}
	return gerrors.Wrap(err, "Telemetry connection lost")
}

// forget drops the session for a socket that ended. It reports whether the
// session was still registered, i.e. the close did not come from CloseConn.
func (c *Client) forget(id conn.ID, ws *websocket.Conn) bool {
	c.mu.Lock()
	s, ok := c.sessions[id]
	registered := ok && s.ws == ws
	if registered {
		delete(c.sessions, id)
	}
	c.mu.Unlock()
	_ = ws.CloseNow()
	return registered
}

func (c *Client) emit(ev scheduler.Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}
