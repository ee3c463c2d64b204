package ctl

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// HealthResponse mirrors the JSON returned by GET /healthz when the client
// asks for JSON.
type HealthResponse struct {
	Healthy bool                      `json:"healthy"`
	Checks  map[string]map[string]any `json:"checks"`
}

// Health asks the daemon for its component checks. An unreachable daemon is
// reported, not returned as an error, when jsonOutput is set.
func Health(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var h HealthResponse
	code, err := getJSONStatus(baseURL, "/healthz", &h)
	if err != nil {
		if jsonOutput {
			return printJSON(w, map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	if jsonOutput {
		return printJSON(w, map[string]any{"healthy": h.Healthy, "url": baseURL, "checks": h.Checks})
	}

	fmt.Fprintln(w)
	if h.Healthy && code == http.StatusOK {
		fmt.Fprintf(w, "  %s  linkhubd is reachable at %s\n", okStyle.Render("HEALTHY"), dimStyle.Render(baseURL))
	} else {
		fmt.Fprintf(w, "  %s  linkhubd returned HTTP %d at %s\n", errStyle.Render("UNHEALTHY"), code, dimStyle.Render(baseURL))
	}

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := h.Checks[name]
		ok, _ := check["ok"].(bool)
		detail := ""
		if e, _ := check["error"].(string); e != "" {
			detail = errStyle.Render(e)
		} else if st, _ := check["state"].(string); st != "" {
			detail = dimStyle.Render(st)
		}
		fmt.Fprintf(w, "    %s %s %s\n", padRight(name, 12), yesNo(ok), detail)
	}
	fmt.Fprintln(w)

	return nil
}
