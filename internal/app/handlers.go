package app

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/presence"
)

// routes builds the daemon's HTTP handler.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	// ---------------------------------------------------------------------
	// Pages
	// ---------------------------------------------------------------------
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /{slug}", a.handleRedirect)
	mux.HandleFunc("/", a.handleNotFound)

	// ---------------------------------------------------------------------
	// API
	// ---------------------------------------------------------------------
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/version", a.handleVersion)
	mux.HandleFunc("GET /api/links", a.handleLinks)
	mux.HandleFunc("GET /api/presence", a.handlePresence)
	mux.Handle("GET /ws", a.wsHub.Handler())

	if a.cfg.Metrics.Enabled {
		mux.Handle("GET "+a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{
			Registry:          a.registry,
			EnableOpenMetrics: true,
		}))
	}

	return mux
}

// ---------------------------------------------------------------------------
// Pages
// ---------------------------------------------------------------------------

func (a *App) handleIndex(w http.ResponseWriter, _ *http.Request) {
	view := a.indexView(time.Now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.pages.ExecuteTemplate(w, "index.html", view); err != nil {
		a.log.Error("render index", zap.Error(err))
	}
}

func (a *App) handleRedirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	target, ok := a.links.Table().Lookup(slug)
	if !ok {
		a.metrics.notFound.Inc()
		a.renderNotFound(w, slug)
		return
	}
	a.metrics.redirects.WithLabelValues(slug).Inc()
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *App) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	a.metrics.notFound.Inc()
	a.renderNotFound(w, "")
}

func (a *App) renderNotFound(w http.ResponseWriter, slug string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	view := notFoundView{Site: a.cfg.Site, Slug: slug}
	if err := a.pages.ExecuteTemplate(w, "notfound.html", view); err != nil {
		a.log.Error("render 404", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   a.cfg.Site.Title,
		"version":   Version,
	})
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleHealthDetailed reports per-component checks. Presence is
// best-effort, so a disconnected feed is reported but never makes the
// daemon unhealthy.
func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	allOK := true

	checks["links"] = map[string]any{"ok": true, "count": a.links.Table().Len()}

	if a.cfg.LinksFile != "" {
		if _, err := os.Stat(a.cfg.LinksFile); err != nil {
			checks["links_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["links_file"] = map[string]any{"ok": true, "path": a.cfg.LinksFile}
		}
	}

	st := a.store.Read()
	checks["presence"] = map[string]any{
		"ok":        st.Connected,
		"state":     a.presenceState(),
		"connected": st.Connected,
		"stale":     st.Stale,
		"error":     st.Error,
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := a.store.Read()
	resp := map[string]any{
		"name":           a.cfg.Site.Title,
		"state":          a.state.Load().(string),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"links":          a.links.Table().Len(),
		"presence": map[string]any{
			"state":      a.presenceState(),
			"subscriber": a.currentSubscriber(),
			"connected":  st.Connected,
			"stale":      st.Stale,
			"error":      st.Error,
			"has_data":   st.Snapshot != nil,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleLinks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"links": a.links.Table().Links()})
}

// PresenceResponse is the body of GET /api/presence.
type PresenceResponse struct {
	Source    string             `json:"source"` // socket, rest, or none
	Connected bool               `json:"connected"`
	Stale     bool               `json:"stale"`
	Error     string             `json:"error,omitempty"`
	Snapshot  *presence.Snapshot `json:"snapshot"`
}

// handlePresence serves the store state. Until the socket has delivered a
// snapshot it falls back to a one-shot REST fetch.
func (a *App) handlePresence(w http.ResponseWriter, r *http.Request) {
	st := a.store.Read()
	resp := PresenceResponse{
		Source:    "socket",
		Connected: st.Connected,
		Stale:     st.Stale,
		Error:     st.Error,
		Snapshot:  st.Snapshot,
	}

	if st.Snapshot == nil {
		resp.Source = "none"
		if sub := a.currentSubscriber(); a.rest != nil && sub != "" {
			snap, err := a.rest.Fetch(r.Context(), sub)
			if err != nil {
				a.log.Warn("rest presence fallback failed", zap.Error(err))
			} else {
				resp.Source = "rest"
				resp.Snapshot = &snap
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
