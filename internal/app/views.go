package app

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/large-farva/linkhub/internal/config"
	"github.com/large-farva/linkhub/internal/links"
	"github.com/large-farva/linkhub/internal/presence"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

type indexPage struct {
	Site     config.SiteConfig
	Links    []links.Link
	Presence *presenceView
}

type notFoundView struct {
	Site config.SiteConfig
	Slug string
}

// presenceView is a snapshot with every time-derived value computed for
// one render.
type presenceView struct {
	Snapshot    *presence.Snapshot
	StatusLabel string
	StatusColor string
	Stale       bool
	Error       string
	Activities  []activityView
}

type activityView struct {
	presence.Activity
	Verb        string
	Elapsed     string // empty when the activity has no start time
	HasProgress bool
	ProgressPct string
	Position    string
	Length      string
}

func (a *App) indexView(now time.Time) indexPage {
	v := indexPage{
		Site:  a.cfg.Site,
		Links: a.links.Table().Links(),
	}

	st := a.store.Read()
	if st.Snapshot == nil {
		return v
	}

	pv := &presenceView{
		Snapshot:    st.Snapshot,
		StatusLabel: st.Snapshot.Status.Label(),
		StatusColor: st.Snapshot.Status.Color(),
		Stale:       st.Stale,
		Error:       st.Error,
	}
	for _, act := range st.Snapshot.VisibleActivities() {
		pv.Activities = append(pv.Activities, newActivityView(act, now))
	}
	v.Presence = pv
	return v
}

func newActivityView(act presence.Activity, now time.Time) activityView {
	av := activityView{Activity: act, Verb: act.Kind.Verb()}
	if act.TimeRange == nil {
		return av
	}

	elapsed := act.Elapsed(now)
	if p, ok := act.Progress(now); ok {
		av.HasProgress = true
		av.ProgressPct = fmt.Sprintf("%.1f", p*100)
		av.Position = presence.FormatClock(min(elapsed, act.Total()))
		av.Length = presence.FormatClock(act.Total())
		return av
	}
	av.Elapsed = presence.FormatElapsed(elapsed)
	return av
}
