package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// wsURL turns the daemon's HTTP base URL into its event stream URL.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// w in a human-readable format until interrupted or the daemon goes away.
func Watch(w io.Writer, baseURL string, opts WatchOptions) error {
	target, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s %s\n", okStyle.Render("connected"), dimStyle.Render(target))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("filter: "+strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(w, rule(50))
		fmt.Fprintln(w)
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !passesFilter(msg, filterSet) {
				continue
			}
			if opts.JSON {
				fmt.Fprintln(w, string(msg))
			} else {
				renderEvent(w, msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Fprintln(w)
			fmt.Fprintln(w, dimStyle.Render("  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

func passesFilter(msg []byte, filter map[string]bool) bool {
	if len(filter) == 0 {
		return true
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		return true
	}
	return filter[ev.Type]
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to indented JSON for unrecognized event types.
func renderEvent(w io.Writer, raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(w, "  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := dimStyle.Render(formatEventTime(ev))

	switch evType {
	case "heartbeat":
		state, _ := ev["state"].(string)
		pres, _ := ev["presence"].(string)
		uptime, _ := ev["uptime_seconds"].(float64)
		fmt.Fprintf(w, "  %s %s  %s  presence %s  up %s\n",
			ts,
			dimStyle.Render("heartbeat"),
			stateStyle(state).Render(state),
			stateStyle(pres).Render(pres),
			dimStyle.Render(formatDuration(time.Duration(uptime)*time.Second)),
		)

	case "state":
		from, _ := ev["from"].(string)
		to, _ := ev["to"].(string)
		component, _ := ev["component"].(string)
		fmt.Fprintf(w, "  %s %s  %s%s %s %s\n",
			ts,
			boldStyle.Render("STATE"),
			componentTag(component),
			stateStyle(from).Render(from),
			dimStyle.Render("->"),
			stateStyle(to).Render(to),
		)

	case "presence":
		var p PresenceResponse
		if err := json.Unmarshal(raw, &p); err != nil {
			fmt.Fprintf(w, "  %s\n", string(raw))
			return
		}
		renderPresenceEvent(w, ts, p)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		fmt.Fprintf(w, "  %s %s  %s%s\n", ts, formatLogLevel(level), componentTag(component), message)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(w, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(w, "  %s\n", string(pretty))
	}
}

func renderPresenceEvent(w io.Writer, ts string, p PresenceResponse) {
	conn := okStyle.Render("connected")
	if !p.Connected {
		conn = warnStyle.Render("disconnected")
	}
	if p.Snapshot == nil {
		fmt.Fprintf(w, "  %s %s  %s  %s\n", ts, boldStyle.Render("PRESENCE"), conn, dimStyle.Render(p.Error))
		return
	}
	s := p.Snapshot
	line := fmt.Sprintf("  %s %s  %s  %s  %s", ts, boldStyle.Render("PRESENCE"), s.Subject.DisplayName, statusDot(s.Status), conn)
	if p.Stale {
		line += " " + warnStyle.Render("(stale)")
	}
	fmt.Fprintln(w, line)

	now := time.Now()
	for _, a := range s.VisibleActivities() {
		fmt.Fprintf(w, "           %s\n", activityLine(a, now))
	}
}

func componentTag(component string) string {
	if component == "" {
		return ""
	}
	return dimStyle.Render("["+component+"]") + " "
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch level {
	case "info":
		return okStyle.Render("INFO ")
	case "warn":
		return warnStyle.Render("WARN ")
	case "error":
		return errStyle.Render("ERROR")
	default:
		return padRight(level, 5)
	}
}
