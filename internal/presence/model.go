// Package presence keeps a live view of one Discord user's presence as
// published by the Lanyard service. A Connection owns the socket lifecycle
// and pushes decoded snapshots into a Store, which presentation code reads
// and observes without knowing anything about the socket.
package presence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is the user's online status. It is always one of the four
// constants below; unknown wire values decode as StatusOffline.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// ParseStatus maps a wire value onto a Status.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
		return Status(s)
	default:
		return StatusOffline
	}
}

// Label returns the human-readable status name.
func (s Status) Label() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusIdle:
		return "Idle"
	case StatusDND:
		return "Do Not Disturb"
	default:
		return "Offline"
	}
}

// Color returns the hex color used to render the status dot.
func (s Status) Color() string {
	switch s {
	case StatusOnline:
		return "#10B981"
	case StatusIdle:
		return "#F59E0B"
	case StatusDND:
		return "#EF4444"
	default:
		return "#6E5A50"
	}
}

// ActivityKind classifies an activity. Discord sends it as a small integer.
type ActivityKind int

const (
	KindGame ActivityKind = iota
	KindStreaming
	KindListening
	KindWatching
	KindCustom
	KindCompeting
	KindUnknown ActivityKind = -1
)

// ParseActivityKind maps Discord's activity type code onto a kind.
func ParseActivityKind(code int) ActivityKind {
	if code < int(KindGame) || code > int(KindCompeting) {
		return KindUnknown
	}
	return ActivityKind(code)
}

func (k ActivityKind) String() string {
	switch k {
	case KindGame:
		return "game"
	case KindStreaming:
		return "streaming"
	case KindListening:
		return "listening"
	case KindWatching:
		return "watching"
	case KindCustom:
		return "custom"
	case KindCompeting:
		return "competing"
	default:
		return "unknown"
	}
}

// Verb is the prefix used when describing the activity ("Playing for 3m").
func (k ActivityKind) Verb() string {
	switch k {
	case KindGame:
		return "Playing"
	case KindStreaming:
		return "Streaming"
	case KindListening:
		return "Listening"
	case KindWatching:
		return "Watching"
	case KindCompeting:
		return "Competing"
	default:
		return "Active"
	}
}

func (k ActivityKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON. Anything else
// decodes as KindUnknown.
func (k *ActivityKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*k = KindUnknown
	for c := KindGame; c <= KindCompeting; c++ {
		if c.String() == name {
			*k = c
			break
		}
	}
	return nil
}

// TimeRange bounds an activity. End is zero for activities without a
// known length.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`
}

// Determinate reports whether the range has both ends.
func (r TimeRange) Determinate() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.After(r.Start)
}

// Subject identifies whose presence this is.
type Subject struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Activity is one entry of a snapshot's activity list.
type Activity struct {
	Kind          ActivityKind `json:"kind"`
	Name          string       `json:"name"`
	Details       string       `json:"details,omitempty"`
	State         string       `json:"state,omitempty"`
	ApplicationID string       `json:"application_id,omitempty"`
	TimeRange     *TimeRange   `json:"time_range,omitempty"`
	ImageURL      string       `json:"image_url,omitempty"`
	ImageText     string       `json:"image_text,omitempty"`
}

// Elapsed is the time since the activity started, or zero if it has no
// start time or now is before it.
func (a Activity) Elapsed(now time.Time) time.Duration {
	if a.TimeRange == nil || a.TimeRange.Start.IsZero() {
		return 0
	}
	if d := now.Sub(a.TimeRange.Start); d > 0 {
		return d
	}
	return 0
}

// Total is the full length of a determinate activity.
func (a Activity) Total() time.Duration {
	if a.TimeRange == nil || !a.TimeRange.Determinate() {
		return 0
	}
	return a.TimeRange.End.Sub(a.TimeRange.Start)
}

// Progress returns elapsed/total clamped to [0,1]. ok is false when the
// activity has no determinate length.
func (a Activity) Progress(now time.Time) (p float64, ok bool) {
	total := a.Total()
	if total <= 0 {
		return 0, false
	}
	p = float64(a.Elapsed(now)) / float64(total)
	return min(max(p, 0), 1), true
}

// Snapshot is the full presence of a subject at one point in time. A new
// snapshot replaces the previous one; it is never patched in place.
type Snapshot struct {
	Subject            Subject    `json:"subject"`
	Status             Status     `json:"status"`
	CustomStatusText   string     `json:"custom_status_text,omitempty"`
	CustomStatusEmoji  string     `json:"custom_status_emoji,omitempty"`
	CustomEmojiURL     string     `json:"custom_emoji_url,omitempty"`
	ListeningToSpotify bool       `json:"listening_to_spotify"`
	Activities         []Activity `json:"activities"`
}

// VisibleActivities returns the activities worth rendering as cards. The
// custom status is shown separately, so it is skipped.
func (s Snapshot) VisibleActivities() []Activity {
	out := make([]Activity, 0, len(s.Activities))
	for _, a := range s.Activities {
		if a.Kind == KindCustom {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Lanyard wire shapes. Only the fields we render are decoded.

type wireUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	GlobalName    string `json:"global_name"`
}

type wireEmoji struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireActivity struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          int        `json:"type"`
	Details       string     `json:"details"`
	State         string     `json:"state"`
	ApplicationID string     `json:"application_id"`
	Emoji         *wireEmoji `json:"emoji"`
	Timestamps    *struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"timestamps"`
	Assets *struct {
		LargeImage string `json:"large_image"`
		LargeText  string `json:"large_text"`
	} `json:"assets"`
}

type wireCustomStatus struct {
	Text      string `json:"text"`
	EmojiName string `json:"emoji_name"`
	EmojiID   string `json:"emoji_id"`
}

type wirePresence struct {
	DiscordUser        *wireUser         `json:"discord_user"`
	DiscordStatus      string            `json:"discord_status"`
	Activities         []wireActivity    `json:"activities"`
	CustomStatus       *wireCustomStatus `json:"custom_status"`
	ListeningToSpotify bool              `json:"listening_to_spotify"`
}

// DecodeSnapshot decodes a Lanyard presence object. It fails only when
// the payload is not a JSON object or carries no user.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var w wirePresence
	if err := json.Unmarshal(raw, &w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if w.DiscordUser == nil || w.DiscordUser.ID == "" {
		return Snapshot{}, fmt.Errorf("%w: presence has no discord_user", ErrMalformedMessage)
	}

	s := Snapshot{
		Subject:            subjectFromWire(*w.DiscordUser),
		Status:             ParseStatus(w.DiscordStatus),
		ListeningToSpotify: w.ListeningToSpotify,
		Activities:         make([]Activity, 0, len(w.Activities)),
	}

	for _, wa := range w.Activities {
		a := activityFromWire(wa)
		s.Activities = append(s.Activities, a)

		if a.Kind == KindCustom && s.CustomStatusText == "" && s.CustomStatusEmoji == "" {
			s.CustomStatusText = wa.State
			if wa.Emoji != nil {
				s.CustomStatusEmoji = wa.Emoji.Name
				s.CustomEmojiURL = emojiURL(wa.Emoji.ID)
			}
		}
	}

	if cs := w.CustomStatus; cs != nil && (cs.Text != "" || cs.EmojiName != "") {
		s.CustomStatusText = cs.Text
		s.CustomStatusEmoji = cs.EmojiName
		s.CustomEmojiURL = emojiURL(cs.EmojiID)
	}

	return s, nil
}

func subjectFromWire(u wireUser) Subject {
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return Subject{
		ID:          u.ID,
		DisplayName: name,
		AvatarURL:   avatarURL(u.ID, u.Avatar),
	}
}

func activityFromWire(wa wireActivity) Activity {
	a := Activity{
		Kind:          ParseActivityKind(wa.Type),
		Name:          wa.Name,
		Details:       wa.Details,
		State:         wa.State,
		ApplicationID: wa.ApplicationID,
	}
	if ts := wa.Timestamps; ts != nil && ts.Start > 0 {
		tr := &TimeRange{Start: time.UnixMilli(ts.Start)}
		if ts.End > ts.Start {
			tr.End = time.UnixMilli(ts.End)
		}
		a.TimeRange = tr
	}
	if as := wa.Assets; as != nil {
		a.ImageURL = ResolveImage(as.LargeImage, a.Kind, wa.ApplicationID)
		a.ImageText = as.LargeText
	}
	return a
}

func avatarURL(userID, avatar string) string {
	if avatar != "" {
		return cdnBase + "/avatars/" + userID + "/" + avatar + ".png?size=128"
	}
	n, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		n = 0
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", cdnBase, n%5)
}

func emojiURL(id string) string {
	if id == "" {
		return ""
	}
	return cdnBase + "/emojis/" + id + ".png"
}
