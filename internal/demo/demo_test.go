package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/presence"
)

func TestNextCyclesScenes(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	r := New(presence.NewStore(), zap.NewNop())
	r.Now = func() time.Time { return now }

	track := r.Next()
	require.Len(t, track.Activities, 1)
	a := track.Activities[0]
	assert.Equal(t, presence.KindListening, a.Kind)
	assert.Equal(t, "https://i.scdn.co/image/ab67616d0000b273fff2cb485c36a6d8f639bdba", a.ImageURL)
	assert.Equal(t, "47s", presence.FormatElapsed(a.Elapsed(now)))
	p, ok := a.Progress(now)
	require.True(t, ok)
	assert.InDelta(t, 47.0/243.0, p, 1e-9)

	game := r.Next()
	assert.Equal(t, presence.StatusDND, game.Status)
	assert.Equal(t, "1h 23m", presence.FormatElapsed(game.Activities[0].Elapsed(now)))
	assert.Equal(t, "https://media.discordapp.net/external/demo/factorio.png", game.Activities[0].ImageURL)

	idle := r.Next()
	assert.Equal(t, presence.StatusIdle, idle.Status)
	assert.Empty(t, idle.Activities)

	assert.Equal(t, presence.StatusOnline, r.Next().Status)
}

func TestRunFeedsStoreUntilCancelled(t *testing.T) {
	store := presence.NewStore()
	r := New(store, zap.NewNop())
	r.Interval = 40 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st := store.Read()
		return st.Connected && st.Snapshot != nil && st.Snapshot.Status == presence.StatusDND
	}, time.Second, 2*time.Millisecond)

	cancel()
	<-done
	st := store.Read()
	assert.False(t, st.Connected)
	assert.True(t, st.Stale)
}
