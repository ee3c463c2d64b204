// Package app wires together the HTTP server, WebSocket hub, redirect table,
// and either the live presence connection or the demo runner. It owns the
// daemon's lifecycle and is the single source of truth for the current
// operating state.
package app

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/config"
	"github.com/large-farva/linkhub/internal/demo"
	"github.com/large-farva/linkhub/internal/links"
	"github.com/large-farva/linkhub/internal/presence"
	"github.com/large-farva/linkhub/internal/telemetry"
	"github.com/large-farva/linkhub/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *zap.Logger
	Cfg    config.Config
	Bind   string

	// Dialer overrides the presence transport. Nil means real WebSockets.
	Dialer presence.Dialer
}

// App is the top-level daemon process. It manages the HTTP server, the
// WebSocket event hub, the redirect table, and the presence feed.
type App struct {
	log    *zap.Logger
	cfg    config.Config
	bind   string
	server *http.Server

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, SERVING, STOPPING)

	wsHub    *ws.Hub
	links    *links.Registry
	store    *presence.Store
	conn     *presence.Connection
	rest     *presence.RESTClient
	watcher  *links.Watcher
	pages    *template.Template
	registry *prometheus.Registry
	metrics  *httpMetrics

	subMu      sync.Mutex
	subscriber string
}

// New builds an App in the BOOTING state. It fails if the configured
// links are invalid. Call Run to start serving.
func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Cfg

	a := &App{
		log:        log,
		cfg:        cfg,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
		store:      presence.NewStore(),
		subscriber: cfg.Presence.SubscriberID,
		registry:   prometheus.NewRegistry(),
		metrics:    newHTTPMetrics(),
	}
	a.state.Store("BOOTING")

	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	a.pages = pages

	entries := cfg.Links
	if cfg.LinksFile != "" {
		fileEntries, subscriberID, err := links.LoadFile(cfg.LinksFile)
		if err != nil {
			return nil, fmt.Errorf("links file: %w", err)
		}
		entries = links.Merge(cfg.Links, fileEntries)
		if a.subscriber == "" {
			a.subscriber = subscriberID
		}
	}
	table, err := links.New(entries)
	if err != nil {
		return nil, err
	}
	a.links = links.NewRegistry(table)

	if cfg.LinksFile != "" {
		a.watcher = &links.Watcher{
			Path:         cfg.LinksFile,
			Base:         cfg.Links,
			Registry:     a.links,
			Log:          log.Named("links"),
			OnSubscriber: a.subscriberFromFile,
		}
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics.Register(a.registry)

	if cfg.Presence.Enabled && !cfg.Demo.Enabled {
		pm := presence.NewMetrics(nil)
		pm.Register(a.registry)

		dialer := opts.Dialer
		if dialer == nil {
			dialer = presence.NewWebSocketDialer(time.Duration(cfg.Presence.HandshakeTimeoutSeconds) * time.Second)
		}
		a.conn = presence.New(presence.Options{
			URL:                 cfg.Presence.SocketURL,
			Dialer:              dialer,
			Store:               a.store,
			Logger:              log.Named("presence"),
			Metrics:             pm,
			HandshakeTimeout:    time.Duration(cfg.Presence.HandshakeTimeoutSeconds) * time.Second,
			ReconnectDelay:      time.Duration(cfg.Presence.ReconnectDelaySeconds) * time.Second,
			SubscribeRetryDelay: time.Duration(cfg.Presence.SubscribeRetryMillis) * time.Millisecond,
			OnStateChange:       a.presenceStateChanged,
		})
		if cfg.Presence.RESTURL != "" && cfg.Presence.RESTCacheSeconds > 0 {
			a.rest = presence.NewRESTClient(cfg.Presence.RESTURL, time.Duration(cfg.Presence.RESTCacheSeconds)*time.Second)
		}
	}

	return a, nil
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, and either the
// presence connection or the demo runner. It blocks until the context is
// cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" && a.cfg.Server.Bind != "" {
		bind = a.cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Info("listening", zap.String("url", "http://"+bind), zap.Int("links", a.links.Table().Len()))

	go a.wsHub.Run(ctx)
	unsubscribe := a.store.Subscribe(a.publishPresence)
	defer unsubscribe()
	a.transition("SERVING")
	go a.heartbeatLoop(ctx)

	switch {
	case a.cfg.Demo.Enabled:
		r := demo.New(a.store, a.log.Named("demo"))
		r.Interval = time.Duration(a.cfg.Demo.IntervalSeconds) * time.Second
		go r.Run(ctx)
	case a.conn != nil:
		go a.conn.Run(ctx, a.currentSubscriber())
	default:
		a.log.Info("presence disabled")
	}

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.log.Warn("links watcher stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		a.log.Info("shutdown requested")
		a.logEvent("info", "shutdown requested")
		a.transition("STOPPING")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()

	return a.server.Serve(ln)
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Load().(string)
	if old == newState {
		return
	}
	a.state.Store(newState)

	a.wsHub.BroadcastJSON(telemetry.StateTransition{
		Event: telemetry.NewEvent(telemetry.EventState, "linkhubd"),
		From:  old,
		To:    newState,
	})
}

// presenceStateChanged runs under the connection's lock, so it only
// queues a broadcast.
func (a *App) presenceStateChanged(from, to presence.ConnState) {
	a.wsHub.BroadcastJSON(telemetry.StateTransition{
		Event: telemetry.NewEvent(telemetry.EventState, "presence"),
		From:  from.String(),
		To:    to.String(),
	})
}

// publishPresence forwards every store write to WebSocket clients. The
// event is sticky so pages opened later get the current state at once.
func (a *App) publishPresence(st presence.State) {
	a.wsHub.BroadcastSticky(telemetry.NewPresenceUpdate(st))
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(telemetry.Heartbeat{
				Event:         telemetry.NewEvent(telemetry.EventHeartbeat, "linkhubd"),
				State:         a.state.Load().(string),
				Presence:      a.presenceState(),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

// logEvent mirrors an operator-relevant log line onto the event stream.
func (a *App) logEvent(level, msg string) {
	a.wsHub.BroadcastJSON(telemetry.LogLine{
		Event:   telemetry.NewEvent(telemetry.EventLog, "linkhubd"),
		Level:   level,
		Message: msg,
	})
}

func (a *App) presenceState() string {
	switch {
	case a.cfg.Demo.Enabled:
		return "demo"
	case a.conn == nil:
		return "disabled"
	default:
		return a.conn.State().String()
	}
}

func (a *App) currentSubscriber() string {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	return a.subscriber
}

// subscriberFromFile applies a subscriber id found in a reloaded links
// file. An id set in the TOML config always wins.
func (a *App) subscriberFromFile(id string) {
	if a.cfg.Presence.SubscriberID != "" {
		return
	}
	a.subMu.Lock()
	changed := id != a.subscriber
	a.subscriber = id
	a.subMu.Unlock()

	if !changed || a.conn == nil {
		return
	}
	a.log.Info("presence subscriber changed, resubscribing", zap.String("subscriber", id))
	a.logEvent("info", "presence subscriber changed to "+id)
	a.conn.Stop()
	a.conn.Start(id)
}
