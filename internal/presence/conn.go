package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultSocketURL           = "wss://api.lanyard.rest/socket"
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultReconnectDelay      = 5 * time.Second
	DefaultSubscribeRetryDelay = 100 * time.Millisecond
)

// ConnState is the lifecycle state of a Connection.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosedClean
	StateClosedError
)

var allConnStates = []ConnState{StateIdle, StateConnecting, StateOpen, StateClosedClean, StateClosedError}

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedClean:
		return "closed-clean"
	case StateClosedError:
		return "closed-error"
	default:
		return "unknown"
	}
}

// Active reports whether a connection attempt is in flight or established.
func (s ConnState) Active() bool {
	return s == StateConnecting || s == StateOpen
}

// Options configures a Connection. Store is required; zero durations fall
// back to the package defaults.
type Options struct {
	URL     string
	Dialer  Dialer // nil disables networking; Start becomes a no-op
	Store   *Store
	Logger  *zap.Logger
	Metrics *Metrics

	HandshakeTimeout    time.Duration
	ReconnectDelay      time.Duration
	SubscribeRetryDelay time.Duration

	// OnStateChange is called on every transition while the connection's
	// lock is held. It must not block or call back into the Connection.
	OnStateChange func(from, to ConnState)
}

// Connection keeps one subscription to the presence service alive and
// feeds its snapshots into a Store.
//
// Every transition happens under mu. Each connection attempt gets a new
// generation number; timers and goroutines carry the generation they were
// started for and do nothing once it is no longer current, so nothing that
// fires after Stop can bring a connection back.
type Connection struct {
	url                 string
	dialer              Dialer
	store               *Store
	log                 *zap.Logger
	metrics             *Metrics
	handshakeTimeout    time.Duration
	reconnectDelay      time.Duration
	subscribeRetryDelay time.Duration
	onStateChange       func(from, to ConnState)

	mu           sync.Mutex
	state        ConnState
	gen          uint64
	subscriberID string
	transport    Transport
	cancelDial   context.CancelFunc

	handshakeTimer *time.Timer
	reconnectTimer *time.Timer
	retryTimer     *time.Timer
	heartbeatTimer *time.Timer
}

// New returns an idle Connection.
func New(opts Options) *Connection {
	c := &Connection{
		url:                 opts.URL,
		dialer:              opts.Dialer,
		store:               opts.Store,
		log:                 opts.Logger,
		metrics:             opts.Metrics,
		handshakeTimeout:    opts.HandshakeTimeout,
		reconnectDelay:      opts.ReconnectDelay,
		subscribeRetryDelay: opts.SubscribeRetryDelay,
		onStateChange:       opts.OnStateChange,
	}
	if c.url == "" {
		c.url = DefaultSocketURL
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.handshakeTimeout <= 0 {
		c.handshakeTimeout = DefaultHandshakeTimeout
	}
	if c.reconnectDelay <= 0 {
		c.reconnectDelay = DefaultReconnectDelay
	}
	if c.subscribeRetryDelay <= 0 {
		c.subscribeRetryDelay = DefaultSubscribeRetryDelay
	}
	c.metrics.setState(StateIdle)
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run starts the subscription and stops it when ctx is cancelled.
func (c *Connection) Run(ctx context.Context, subscriberID string) {
	c.Start(subscriberID)
	<-ctx.Done()
	c.Stop()
}

// Start begins connecting and returns immediately. It is a no-op while a
// connection is already connecting or open.
func (c *Connection) Start(subscriberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(subscriberID)
}

// Stop closes the connection with a normal closure and cancels every
// pending timer. No reconnect follows.
func (c *Connection) Stop() {
	c.mu.Lock()
	c.gen++
	t := c.transport
	c.transport = nil
	c.clearTimersLocked()
	c.setStateLocked(StateClosedClean)
	c.store.SetConnected(false)
	c.mu.Unlock()

	if t != nil {
		_ = t.Close(websocket.CloseNormalClosure, "client shutting down")
		c.log.Info("presence connection closed")
	}
}

func (c *Connection) startLocked(subscriberID string) {
	if c.state.Active() {
		c.log.Debug("presence connection already active", zap.Stringer("state", c.state))
		return
	}
	if c.dialer == nil {
		c.log.Warn("presence networking unavailable, not connecting")
		return
	}
	if subscriberID == "" {
		c.log.Error("cannot start presence connection", zap.Error(ErrConfiguration))
		c.store.SetError("Configuration error")
		return
	}

	c.clearTimersLocked()
	c.gen++
	gen := c.gen
	c.subscriberID = subscriberID

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.setStateLocked(StateConnecting)
	c.handshakeTimer = time.AfterFunc(c.handshakeTimeout, func() { c.handshakeExpired(gen) })
	c.metrics.dialed()

	c.log.Info("connecting to presence service",
		zap.String("url", c.url),
		zap.String("subscriber", subscriberID),
	)
	go c.dial(ctx, gen)
}

func (c *Connection) dial(ctx context.Context, gen uint64) {
	t, err := c.dialer.Dial(ctx, c.url)

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		if t != nil {
			_ = t.Close(websocket.CloseNormalClosure, "superseded")
		}
		return
	}
	if err != nil {
		c.failLocked(fmt.Errorf("%w: %v", ErrTransport, err))
		c.mu.Unlock()
		return
	}

	stopTimer(&c.handshakeTimer)
	c.transport = t
	c.setStateLocked(StateOpen)
	c.store.SetConnected(true)
	c.log.Info("connected to presence service")

	if err := t.WriteMessage(subscribeFrame(c.subscriberID)); err != nil {
		c.log.Warn("subscribe failed, retrying", zap.Error(err), zap.Duration("delay", c.subscribeRetryDelay))
		c.retryTimer = time.AfterFunc(c.subscribeRetryDelay, func() { c.retrySubscribe(gen) })
	}
	c.mu.Unlock()

	go c.readLoop(gen, t)
}

func (c *Connection) retrySubscribe(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateOpen {
		return
	}
	c.retryTimer = nil
	if err := c.transport.WriteMessage(subscribeFrame(c.subscriberID)); err != nil {
		c.log.Warn("subscribe retry failed", zap.Error(err))
	}
}

func (c *Connection) handshakeExpired(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateConnecting {
		return
	}
	c.handshakeTimer = nil
	c.failLocked(fmt.Errorf("%w after %s", ErrHandshakeTimeout, c.handshakeTimeout))
}

func (c *Connection) readLoop(gen uint64, t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			c.closed(gen, t, err)
			return
		}
		c.handleMessage(gen, t, data)
	}
}

// handleMessage runs on the read goroutine. Heartbeat acks are written
// before the next frame is read.
func (c *Connection) handleMessage(gen uint64, t Transport, data []byte) {
	msg, err := decodeInbound(data)
	if err != nil {
		c.metrics.message("malformed")
		c.log.Warn("dropping presence frame", zap.Error(err))
		return
	}

	switch msg.kind {
	case msgHello:
		c.metrics.message("hello")
		c.sendHeartbeat(t)
		if msg.heartbeatInterval > 0 {
			c.armHeartbeat(gen, t, time.Duration(msg.heartbeatInterval)*time.Millisecond)
		}

	case msgSnapshot:
		c.metrics.message("snapshot")
		c.mu.Lock()
		if gen == c.gen && c.state == StateOpen {
			c.store.SetSnapshot(msg.snapshot)
		}
		c.mu.Unlock()

	default:
		c.metrics.message("ignored")
		c.log.Debug("ignoring presence frame", zap.String("event", msg.event))
	}
}

func (c *Connection) sendHeartbeat(t Transport) {
	if err := t.WriteMessage(heartbeatFrame()); err != nil {
		c.log.Warn("heartbeat failed", zap.Error(err))
		return
	}
	c.metrics.heartbeatSent()
}

func (c *Connection) armHeartbeat(gen uint64, t Transport, every time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateOpen {
		return
	}
	stopTimer(&c.heartbeatTimer)
	c.heartbeatTimer = time.AfterFunc(every, func() { c.beat(gen, t, every) })
}

func (c *Connection) beat(gen uint64, t Transport, every time.Duration) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	c.heartbeatTimer = time.AfterFunc(every, func() { c.beat(gen, t, every) })
	c.mu.Unlock()

	c.sendHeartbeat(t)
}

func (c *Connection) closed(gen uint64, t Transport, readErr error) {
	code := closeCode(readErr)

	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	c.transport = nil

	if isCleanClose(code) {
		c.clearTimersLocked()
		c.setStateLocked(StateClosedClean)
		c.store.SetConnected(false)
		c.log.Info("presence service closed the connection", zap.Int("code", code))
	} else {
		var ce *websocket.CloseError
		if errors.As(readErr, &ce) {
			c.failLocked(fmt.Errorf("%w (code %d)", ErrAbnormalClosure, code))
		} else {
			c.failLocked(fmt.Errorf("%w: %v", ErrTransport, readErr))
		}
	}
	c.mu.Unlock()

	_ = t.Close(websocket.CloseNormalClosure, "")
}

// failLocked moves to ClosedError and schedules exactly one reconnect.
func (c *Connection) failLocked(err error) {
	c.clearTimersLocked()
	c.setStateLocked(StateClosedError)
	c.store.SetError(err.Error())
	c.log.Warn("presence connection lost",
		zap.Error(err),
		zap.Duration("reconnect_in", c.reconnectDelay),
	)

	gen := c.gen
	c.metrics.reconnectScheduled()
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() { c.reconnect(gen) })
}

func (c *Connection) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateClosedError {
		return
	}
	c.reconnectTimer = nil
	c.log.Info("reconnecting to presence service")
	c.startLocked(c.subscriberID)
}

func (c *Connection) clearTimersLocked() {
	stopTimer(&c.handshakeTimer)
	stopTimer(&c.reconnectTimer)
	stopTimer(&c.retryTimer)
	stopTimer(&c.heartbeatTimer)
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
}

func (c *Connection) setStateLocked(s ConnState) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.metrics.setState(s)
	c.log.Debug("presence state", zap.Stringer("from", from), zap.Stringer("to", s))
	if c.onStateChange != nil {
		c.onStateChange(from, s)
	}
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
