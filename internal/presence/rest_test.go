package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTClientFetchCachesResult(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/users/94490510688792576" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":` + samplePresence + `}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL+"/v1/", time.Minute)

	snap, err := c.Fetch(context.Background(), "94490510688792576")
	require.NoError(t, err)
	assert.Equal(t, "Phineas", snap.Subject.DisplayName)
	assert.Equal(t, StatusDND, snap.Status)

	_, err = c.Fetch(context.Background(), "94490510688792576")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRESTClientFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"user_not_monitored"}}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, time.Minute)

	_, err := c.Fetch(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "user_not_monitored")

	_, err = c.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrConfiguration)
}
