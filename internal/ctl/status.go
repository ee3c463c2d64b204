package ctl

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Links         int    `json:"links"`
	Presence      struct {
		State      string `json:"state"`
		Subscriber string `json:"subscriber"`
		Connected  bool   `json:"connected"`
		Stale      bool   `json:"stale"`
		Error      string `json:"error"`
		HasData    bool   `json:"has_data"`
	} `json:"presence"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w, s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	subscriber := s.Presence.Subscriber
	if subscriber == "" {
		subscriber = dimStyle.Render("(none)")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  LINKHUB STATUS"))
	fmt.Fprintln(w, rule(38))
	fmt.Fprintf(w, "  %-12s %s\n", "Site:", s.Name)
	fmt.Fprintf(w, "  %-12s %s\n", "State:", stateStyle(s.State).Render(s.State))
	fmt.Fprintf(w, "  %-12s %s\n", "Uptime:", uptime)
	fmt.Fprintf(w, "  %-12s %d\n", "Links:", s.Links)
	fmt.Fprintf(w, "  %-12s %s\n", "Presence:", stateStyle(s.Presence.State).Render(s.Presence.State))
	fmt.Fprintf(w, "  %-12s %s\n", "Subscriber:", subscriber)
	fmt.Fprintf(w, "  %-12s %s\n", "Connected:", yesNo(s.Presence.Connected))
	if s.Presence.Stale {
		fmt.Fprintf(w, "  %-12s %s\n", "Data:", warnStyle.Render("stale"))
	}
	if s.Presence.Error != "" {
		fmt.Fprintf(w, "  %-12s %s\n", "Error:", errStyle.Render(s.Presence.Error))
	}
	fmt.Fprintf(w, "  %-12s %s\n", "Host:", baseURL)
	fmt.Fprintln(w)

	return nil
}
