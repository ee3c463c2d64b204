package ctl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/large-farva/linkhub/internal/presence"
)

// PresenceResponse mirrors the JSON returned by GET /api/presence.
type PresenceResponse struct {
	Source    string             `json:"source"`
	Connected bool               `json:"connected"`
	Stale     bool               `json:"stale"`
	Error     string             `json:"error,omitempty"`
	Snapshot  *presence.Snapshot `json:"snapshot"`
}

// Presence prints the subject's current presence the way the site's card
// shows it.
func Presence(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var p PresenceResponse
	if err := getJSON(baseURL, "/api/presence", &p); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w, p)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  PRESENCE"))
	fmt.Fprintln(w, rule(50))
	if p.Snapshot == nil {
		msg := "no presence data"
		if p.Error != "" {
			msg += ": " + p.Error
		}
		fmt.Fprintln(w, "  "+dimStyle.Render(msg))
		fmt.Fprintln(w)
		return nil
	}

	s := p.Snapshot
	fmt.Fprintf(w, "  %s  %s\n", boldStyle.Render(s.Subject.DisplayName), statusDot(s.Status))
	if s.CustomStatusText != "" || s.CustomStatusEmoji != "" {
		fmt.Fprintf(w, "  %s\n", strings.TrimSpace(s.CustomStatusEmoji+" "+s.CustomStatusText))
	}

	now := time.Now()
	for _, a := range s.VisibleActivities() {
		fmt.Fprintf(w, "  %s\n", activityLine(a, now))
	}

	source := p.Source
	if p.Stale {
		source += ", " + warnStyle.Render("stale")
	}
	fmt.Fprintf(w, "  %s\n", dimStyle.Render("source: "+source))
	if p.Error != "" {
		fmt.Fprintf(w, "  %s\n", errStyle.Render(p.Error))
	}
	fmt.Fprintln(w)
	return nil
}

// activityLine renders one activity on a single line, with a progress bar
// for activities of known length and elapsed time otherwise.
func activityLine(a presence.Activity, now time.Time) string {
	var b strings.Builder
	b.WriteString(accentStyle.Render(padRight(a.Kind.Verb(), 10)))
	b.WriteString(" ")
	b.WriteString(a.Name)
	if detail := joinNonEmpty(" - ", a.Details, a.State); detail != "" {
		b.WriteString("  ")
		b.WriteString(dimStyle.Render(detail))
	}

	if a.TimeRange == nil {
		return b.String()
	}
	if p, ok := a.Progress(now); ok {
		pos := min(a.Elapsed(now), a.Total())
		fmt.Fprintf(&b, "  [%s] %s / %s", progressBar(p, 20), presence.FormatClock(pos), presence.FormatClock(a.Total()))
		return b.String()
	}
	fmt.Fprintf(&b, "  for %s", presence.FormatElapsed(a.Elapsed(now)))
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
