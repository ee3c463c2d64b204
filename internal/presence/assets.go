package presence

import "strings"

const (
	cdnBase          = "https://cdn.discordapp.com"
	mediaBase        = "https://media.discordapp.net/"
	externalBase     = mediaBase + "external/"
	spotifyImageBase = "https://i.scdn.co/image/"

	spotifyPrefix  = "spotify:"
	externalPrefix = "mp:external/"
	mediaPrefix    = "mp:"
)

// ResolveImage turns a raw activity asset reference into a fetchable URL.
// Prefixes are checked most-specific-first. An empty string means the
// activity has no usable image.
func ResolveImage(raw string, kind ActivityKind, applicationID string) string {
	switch {
	case raw == "":
		return ""
	case kind == KindListening && strings.HasPrefix(raw, spotifyPrefix):
		return spotifyImageBase + strings.TrimPrefix(raw, spotifyPrefix)
	case strings.HasPrefix(raw, externalPrefix):
		return externalBase + strings.TrimPrefix(raw, externalPrefix)
	case strings.HasPrefix(raw, mediaPrefix):
		return mediaBase + strings.TrimPrefix(raw, mediaPrefix)
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		return raw
	case applicationID == "":
		return ""
	default:
		return cdnBase + "/app-assets/" + applicationID + "/" + raw + ".png"
	}
}
