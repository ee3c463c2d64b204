package ctl

import (
	"fmt"
	"io"
	"strings"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = "unknown"
)

// VersionInfo fetches daemon version via GET /api/version and displays both
// the CLI and daemon version information.
func VersionInfo(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var daemon struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
		BuiltAt   string `json:"built_at"`
	}
	daemonErr := getJSON(baseURL, "/api/version", &daemon)

	if jsonOutput {
		resp := map[string]any{
			"cli": map[string]any{
				"version":    Version,
				"go_version": GoVersion,
			},
		}
		if daemonErr == nil {
			resp["daemon"] = daemon
		} else {
			resp["daemon_error"] = daemonErr.Error()
		}
		return printJSON(w, resp)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  LINKHUB VERSION"))
	fmt.Fprintln(w, rule(38))
	fmt.Fprintf(w, "  %-12s %s\n", "CLI:", Version+" ("+GoVersion+")")
	if daemonErr != nil {
		fmt.Fprintf(w, "  %-12s %s\n", "Daemon:", errStyle.Render("unreachable: "+daemonErr.Error()))
	} else {
		fmt.Fprintf(w, "  %-12s %s\n", "Daemon:", daemon.Version+" ("+daemon.GoVersion+")")
		fmt.Fprintf(w, "  %-12s %s\n", "Built:", daemon.BuiltAt)
	}
	fmt.Fprintln(w)

	return nil
}
