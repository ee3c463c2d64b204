package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/config"
	"github.com/large-farva/linkhub/internal/presence"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Presence.Enabled = false
	cfg.Site.Title = "someone's links"
	cfg.Links = map[string]string{
		"github":  "https://github.com/someone",
		"youtube": "https://youtube.com/@someone",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(Options{Logger: zap.NewNop(), Cfg: cfg})
	require.NoError(t, err)
	return a
}

func do(t *testing.T, h http.Handler, method, target string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func sampleSnapshot(now time.Time) presence.Snapshot {
	return presence.Snapshot{
		Subject: presence.Subject{
			ID:          "94490510688792576",
			DisplayName: "Phineas",
			AvatarURL:   "https://cdn.discordapp.com/embed/avatars/1.png",
		},
		Status:           presence.StatusIdle,
		CustomStatusText: "shipping things",
		Activities: []presence.Activity{
			{Kind: presence.KindCustom, Name: "Custom Status", State: "shipping things"},
			{
				Kind:    presence.KindListening,
				Name:    "Spotify",
				Details: "Midnight City",
				State:   "M83",
				TimeRange: &presence.TimeRange{
					Start: now.Add(-time.Minute),
					End:   now.Add(3 * time.Minute),
				},
			},
			{
				Kind:      presence.KindGame,
				Name:      "Factorio",
				TimeRange: &presence.TimeRange{Start: now.Add(-90 * time.Minute)},
			},
		},
	}
}

func TestRedirectKnownSlug(t *testing.T) {
	a := newTestApp(t, nil)
	res, _ := do(t, a.routes(), http.MethodGet, "/github")

	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "https://github.com/someone", res.Header.Get("Location"))
}

func TestUnknownSlugRendersNotFound(t *testing.T) {
	a := newTestApp(t, nil)
	res, body := do(t, a.routes(), http.MethodGet, "/gitlab")

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Link Not Found")
	assert.Contains(t, body, "/gitlab")
}

func TestSlugLookupIsCaseSensitive(t *testing.T) {
	a := newTestApp(t, nil)
	res, _ := do(t, a.routes(), http.MethodGet, "/GitHub")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestNestedPathRendersNotFound(t *testing.T) {
	a := newTestApp(t, nil)
	res, body := do(t, a.routes(), http.MethodGet, "/github/extra")

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Page Not Found")
}

func TestIndexListsLinks(t *testing.T) {
	a := newTestApp(t, nil)
	res, body := do(t, a.routes(), http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "someone&#39;s links")
	assert.Contains(t, body, `href="/github"`)
	assert.Contains(t, body, ">Youtube<")
	assert.NotContains(t, body, `id="presence"`)
	assert.Less(t, strings.Index(body, "/github"), strings.Index(body, "/youtube"))
}

func TestIndexRendersPresence(t *testing.T) {
	a := newTestApp(t, nil)
	a.store.SetConnected(true)
	a.store.SetSnapshot(sampleSnapshot(time.Now()))

	_, body := do(t, a.routes(), http.MethodGet, "/")

	assert.Contains(t, body, `id="presence"`)
	assert.Contains(t, body, "Phineas")
	assert.Contains(t, body, "Idle")
	assert.Contains(t, body, "shipping things")
	assert.Contains(t, body, "Midnight City")
	assert.Contains(t, body, `class="length">4:00<`)
	assert.Contains(t, body, "Playing for 1h 30m")
	assert.NotContains(t, body, "last seen while connected")
	assert.NotContains(t, body, "Custom Status")
}

func TestIndexMarksStalePresence(t *testing.T) {
	a := newTestApp(t, nil)
	a.store.SetSnapshot(sampleSnapshot(time.Now()))
	a.store.SetError("presence connection lost")

	_, body := do(t, a.routes(), http.MethodGet, "/")
	assert.Contains(t, body, "last seen while connected")
}

func TestHealthRejectsOtherMethods(t *testing.T) {
	a := newTestApp(t, nil)
	res, body := do(t, a.routes(), http.MethodPost, "/api/health")

	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	assert.Equal(t, http.MethodGet, res.Header.Get("Allow"))
	assert.JSONEq(t, `{"error":"Method not allowed"}`, body)
}

func TestHealthOK(t *testing.T) {
	a := newTestApp(t, nil)
	res, body := do(t, a.routes(), http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"version":"dev"`)
}

func TestHealthzDetailed(t *testing.T) {
	a := newTestApp(t, nil)
	a.cfg.LinksFile = filepath.Join(t.TempDir(), "gone.json")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy":false`)
	assert.Contains(t, rec.Body.String(), `"state":"disabled"`)
}

func TestPresenceFromStore(t *testing.T) {
	a := newTestApp(t, nil)
	a.store.SetConnected(true)
	a.store.SetSnapshot(sampleSnapshot(time.Now()))

	_, body := do(t, a.routes(), http.MethodGet, "/api/presence")
	assert.Contains(t, body, `"source":"socket"`)
	assert.Contains(t, body, `"connected":true`)
	assert.Contains(t, body, `"display_name":"Phineas"`)
}

func TestPresenceFallsBackToREST(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/42" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"discord_user":{"id":"42","username":"someone"},"discord_status":"online","activities":[]}}`))
	}))
	defer srv.Close()

	a := newTestApp(t, func(c *config.Config) {
		c.Presence.Enabled = true
		c.Presence.SubscriberID = "42"
		c.Presence.RESTURL = srv.URL + "/v1"
	})

	_, body := do(t, a.routes(), http.MethodGet, "/api/presence")
	assert.Contains(t, body, `"source":"rest"`)
	assert.Contains(t, body, `"status":"online"`)
	assert.Contains(t, body, `"connected":false`)
}

func TestPresenceWithoutDataOrSubscriber(t *testing.T) {
	a := newTestApp(t, nil)
	_, body := do(t, a.routes(), http.MethodGet, "/api/presence")
	assert.Contains(t, body, `"source":"none"`)
	assert.Contains(t, body, `"snapshot":null`)
}

func TestStatusReportsPresenceState(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Presence.Enabled = true
		c.Presence.SubscriberID = "42"
	})
	_, body := do(t, a.routes(), http.MethodGet, "/api/status")

	assert.Contains(t, body, `"state":"BOOTING"`)
	assert.Contains(t, body, `"state":"idle"`)
	assert.Contains(t, body, `"subscriber":"42"`)
	assert.Contains(t, body, `"links":2`)
}

func TestLinksEndpoint(t *testing.T) {
	a := newTestApp(t, nil)
	_, body := do(t, a.routes(), http.MethodGet, "/api/links")
	assert.JSONEq(t, `{"links":[
		{"slug":"github","name":"Github","url":"https://github.com/someone"},
		{"slug":"youtube","name":"Youtube","url":"https://youtube.com/@someone"}
	]}`, body)
}

func TestMetricsCountRedirects(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.routes()
	do(t, h, http.MethodGet, "/github")
	do(t, h, http.MethodGet, "/github")
	do(t, h, http.MethodGet, "/nope")

	_, body := do(t, h, http.MethodGet, "/metrics")
	assert.Contains(t, body, `linkhub_redirects_total{slug="github"} 2`)
	assert.Contains(t, body, `linkhub_not_found_total 1`)
}

func TestMetricsDisabled(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Metrics.Enabled = false })
	res, _ := do(t, a.routes(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestLinksFileMergesAndSuppliesSubscriber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"discordUserId": "1050078541174366278",
		"github": "https://github.com/someone-else",
		"blog": "https://blog.example.com"
	}`), 0o644))

	a := newTestApp(t, func(c *config.Config) {
		c.Presence.Enabled = true
		c.LinksFile = path
	})

	assert.Equal(t, "1050078541174366278", a.currentSubscriber())
	u, ok := a.links.Table().Lookup("github")
	require.True(t, ok)
	assert.Equal(t, "https://github.com/someone-else", u)
	assert.Equal(t, 3, a.links.Table().Len())
}

func TestConfiguredSubscriberWinsOverFile(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Presence.SubscriberID = "42"
	})
	a.subscriberFromFile("1050078541174366278")
	assert.Equal(t, "42", a.currentSubscriber())
}

func TestNewRejectsInvalidLinks(t *testing.T) {
	cfg := config.Default()
	cfg.Links = map[string]string{"api": "https://example.com"}
	_, err := New(Options{Cfg: cfg})
	assert.Error(t, err)
}
