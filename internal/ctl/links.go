package ctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/large-farva/linkhub/internal/links"
)

// Links lists the daemon's redirect table.
func Links(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Links []links.Link `json:"links"`
	}
	if err := getJSON(baseURL, "/api/links", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w, resp)
	}

	width := 4
	for _, l := range resp.Links {
		width = max(width, len(l.Slug)+1)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header(fmt.Sprintf("  LINKS (%d)", len(resp.Links))))
	fmt.Fprintln(w, rule(50))
	if len(resp.Links) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no links configured"))
	}
	for _, l := range resp.Links {
		fmt.Fprintf(w, "  %s %s %s\n", accentStyle.Render(padRight("/"+l.Slug, width)), l.URL, dimStyle.Render(l.Name))
	}
	fmt.Fprintln(w)
	return nil
}
