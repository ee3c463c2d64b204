package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const DefaultRESTURL = "https://api.lanyard.rest/v1"

// RESTClient fetches a one-shot snapshot from Lanyard's HTTP API for
// callers that do not want to hold a socket open. Results are cached
// briefly so a burst of page loads costs one upstream request.
type RESTClient struct {
	base string
	http *http.Client
	c    *cache.Cache
}

// NewRESTClient returns a client for baseURL (DefaultRESTURL if empty)
// caching responses for ttl.
func NewRESTClient(baseURL string, ttl time.Duration) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	return &RESTClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
		c:    cache.New(ttl, 2*ttl),
	}
}

// Fetch returns the current snapshot for subscriberID.
func (r *RESTClient) Fetch(ctx context.Context, subscriberID string) (Snapshot, error) {
	if subscriberID == "" {
		return Snapshot{}, ErrConfiguration
	}
	if v, ok := r.c.Get(subscriberID); ok {
		return v.(Snapshot), nil
	}

	endpoint := r.base + "/users/" + url.PathEscape(subscriberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(b))
		if msg != "" {
			return Snapshot{}, fmt.Errorf("lanyard: HTTP %s: %s", resp.Status, msg)
		}
		return Snapshot{}, fmt.Errorf("lanyard: HTTP %s", resp.Status)
	}

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	snap, err := DecodeSnapshot(body.Data)
	if err != nil {
		return Snapshot{}, err
	}

	r.c.Set(subscriberID, snap, cache.DefaultExpiration)
	return snap, nil
}
