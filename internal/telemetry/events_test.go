package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/linkhub/internal/presence"
)

func TestNewEventStampsUTC(t *testing.T) {
	ev := NewEvent(EventState, "presence")
	ts, err := time.Parse(time.RFC3339Nano, ev.TS)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestPresenceUpdateFlattensState(t *testing.T) {
	st := presence.State{
		Snapshot: &presence.Snapshot{
			Subject: presence.Subject{ID: "42", DisplayName: "Phineas"},
			Status:  presence.StatusOnline,
		},
		Error: "presence connection lost",
		Stale: true,
	}

	b, err := json.Marshal(NewPresenceUpdate(st))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "presence", got["type"])
	assert.Equal(t, "presence", got["component"])
	assert.Equal(t, false, got["connected"])
	assert.Equal(t, true, got["stale"])
	assert.Equal(t, "presence connection lost", got["error"])
	assert.Equal(t, "Phineas", got["snapshot"].(map[string]any)["subject"].(map[string]any)["display_name"])
}
