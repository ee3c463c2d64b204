// Package demo simulates a live presence feed so the daemon, CLI, and
// homepage can be exercised end-to-end without network access or a
// subscriber id. The simulated snapshots cycle through a game, a Spotify
// track, and an idle spell so every part of the presence card gets drawn.
package demo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/large-farva/linkhub/internal/presence"
)

// Runner pushes simulated snapshots into a store on a configurable interval.
type Runner struct {
	Store    *presence.Store
	Log      *zap.Logger
	Interval time.Duration // time between simulated presence changes

	// Now is the clock used for activity timestamps.
	Now func() time.Time

	step int // cycles through the scenes
}

// New creates a demo runner with a sensible default interval.
func New(store *presence.Store, logger *zap.Logger) *Runner {
	return &Runner{
		Store:    store,
		Log:      logger,
		Interval: 20 * time.Second,
		Now:      time.Now,
	}
}

// Run marks the store connected, publishes one scene immediately, then
// advances on the configured interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.Log.Info("demo mode active, simulating presence", zap.Duration("interval", r.Interval))
	r.Store.SetConnected(true)
	r.Store.SetSnapshot(r.Next())

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Store.SetConnected(false)
			return
		case <-t.C:
			r.Store.SetSnapshot(r.Next())
		}
	}
}

// Next returns the next simulated snapshot.
func (r *Runner) Next() presence.Snapshot {
	now := r.Now()
	scene := r.step % 3
	r.step++

	snap := presence.Snapshot{
		Subject: presence.Subject{
			ID:          "0",
			DisplayName: "Demo User",
			AvatarURL:   "https://cdn.discordapp.com/embed/avatars/0.png",
		},
		CustomStatusText:  "just testing things",
		CustomStatusEmoji: "🛰",
		Activities:        []presence.Activity{},
	}

	switch scene {
	case 0:
		snap.Status = presence.StatusOnline
		snap.ListeningToSpotify = true
		start := now.Add(-47 * time.Second)
		snap.Activities = append(snap.Activities, presence.Activity{
			Kind:      presence.KindListening,
			Name:      "Spotify",
			Details:   "Midnight City",
			State:     "M83",
			TimeRange: &presence.TimeRange{Start: start, End: start.Add(243 * time.Second)},
			ImageURL:  presence.ResolveImage("spotify:ab67616d0000b273fff2cb485c36a6d8f639bdba", presence.KindListening, ""),
			ImageText: "Hurry Up, We're Dreaming",
		})
	case 1:
		snap.Status = presence.StatusDND
		snap.Activities = append(snap.Activities, presence.Activity{
			Kind:          presence.KindGame,
			Name:          "Factorio",
			Details:       "Building a rail network",
			ApplicationID: "383226320970055681",
			TimeRange:     &presence.TimeRange{Start: now.Add(-83 * time.Minute)},
			ImageURL:      presence.ResolveImage("mp:external/demo/factorio.png", presence.KindGame, "383226320970055681"),
		})
	default:
		snap.Status = presence.StatusIdle
	}

	return snap
}
