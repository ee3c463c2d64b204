// Package links holds the slug -> URL redirect table behind the homepage
// and the /{slug} routes.
package links

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"go.uber.org/multierr"
)

// SubscriberKey is the reserved key of a flat links file that carries the
// presence subscriber id instead of a redirect.
const SubscriberKey = "discordUserId"

// Slugs that would shadow daemon routes.
var reserved = map[string]bool{
	"api":     true,
	"ws":      true,
	"healthz": true,
	"metrics": true,
}

// Link is one rendered entry of the table.
type Link struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Table is an immutable, validated redirect table.
type Table struct {
	entries map[string]string
	slugs   []string
}

// New validates entries and builds a Table. Every invalid entry is
// reported, not just the first.
func New(entries map[string]string) (*Table, error) {
	t := &Table{entries: make(map[string]string, len(entries))}

	var err error
	for slug, target := range entries {
		if e := validate(slug, target); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		t.entries[slug] = target
		t.slugs = append(t.slugs, slug)
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(t.slugs)
	return t, nil
}

func validate(slug, target string) error {
	switch {
	case slug == "":
		return errors.New("links: empty slug")
	case strings.ContainsAny(slug, "/?#") || strings.ContainsFunc(slug, unicode.IsSpace):
		return fmt.Errorf("links: slug %q contains a path separator or whitespace", slug)
	case reserved[strings.ToLower(slug)]:
		return fmt.Errorf("links: slug %q is reserved", slug)
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("links: %s: %w", slug, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("links: %s: target %q is not an absolute http(s) URL", slug, target)
	}
	return nil
}

// Lookup returns the redirect target for slug.
func (t *Table) Lookup(slug string) (string, bool) {
	u, ok := t.entries[slug]
	return u, ok
}

// Len is the number of entries.
func (t *Table) Len() int { return len(t.slugs) }

// Slugs returns the slugs in sorted order.
func (t *Table) Slugs() []string {
	return append([]string(nil), t.slugs...)
}

// Links returns every entry, sorted by slug.
func (t *Table) Links() []Link {
	out := make([]Link, 0, len(t.slugs))
	for _, s := range t.slugs {
		out = append(out, Link{Slug: s, Name: DisplayName(s), URL: t.entries[s]})
	}
	return out
}

// DisplayName turns "my-cool-site" into "My Cool Site".
func DisplayName(slug string) string {
	parts := strings.Split(slug, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r, n := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + p[n:]
	}
	return strings.Join(parts, " ")
}

// ParseFlat decodes a flat JSON object of string values. The reserved
// SubscriberKey is split out; everything else is a slug -> URL entry.
func ParseFlat(b []byte) (entries map[string]string, subscriberID string, err error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, "", fmt.Errorf("links: %w", err)
	}

	entries = make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("links: value of %q is not a string", k))
			continue
		}
		if k == SubscriberKey {
			subscriberID = s
			continue
		}
		entries[k] = s
	}
	if err != nil {
		return nil, "", err
	}
	return entries, subscriberID, nil
}

// LoadFile reads and parses a flat links file.
func LoadFile(path string) (map[string]string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return ParseFlat(b)
}

// Merge returns base overlaid with overlay. Neither input is modified.
func Merge(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Registry publishes the current Table to concurrent readers. Reloads swap
// the whole table.
type Registry struct {
	cur atomic.Pointer[Table]
}

// NewRegistry returns a registry serving t.
func NewRegistry(t *Table) *Registry {
	r := &Registry{}
	r.cur.Store(t)
	return r
}

// Table returns the current table.
func (r *Registry) Table() *Table { return r.cur.Load() }

// Swap replaces the current table.
func (r *Registry) Swap(t *Table) { r.cur.Store(t) }
