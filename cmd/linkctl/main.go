// Linkctl is the command-line client for a running linkhubd instance. It
// connects over HTTP and WebSocket to query status and presence and to
// stream live events from the daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/linkhub/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "linkhubd URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,presence)")
	)

	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	out := os.Stdout
	var err error
	switch pflag.Arg(0) {
	case "status":
		err = ctl.Status(out, *host, *jsonOut)
	case "health":
		err = ctl.Health(out, *host, *jsonOut)
	case "version":
		err = ctl.VersionInfo(out, *host, *jsonOut)
	case "links":
		err = ctl.Links(out, *host, *jsonOut)
	case "presence":
		err = ctl.Presence(out, *host, *jsonOut)
	case "watch":
		err = ctl.Watch(out, *host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  linkctl - link hub control CLI

  USAGE
    linkctl [flags] <command>

  COMMANDS
    status          Show daemon state, uptime, and presence connection
    health          Check daemon and component health
    version         Show CLI and daemon version information
    links           List the redirect table
    presence        Show the current presence card
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated:
                        heartbeat, state, presence, log)

  EXAMPLES
    linkctl status
    linkctl --json presence
    linkctl --host https://links.example.com --filter presence watch
`)
}
