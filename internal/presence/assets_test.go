package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  ActivityKind
		appID string
		want  string
	}{
		{"spotify", "spotify:abc123", KindListening, "", "https://i.scdn.co/image/abc123"},
		{"spotify prefix outside listening", "spotify:abc123", KindGame, "77", "https://cdn.discordapp.com/app-assets/77/spotify:abc123.png"},
		{"external media", "mp:external/xyz", KindGame, "1", "https://media.discordapp.net/external/xyz"},
		{"external media keeps inner mp", "mp:external/abc/mp:def", KindGame, "1", "https://media.discordapp.net/external/abc/mp:def"},
		{"generic media", "mp:attachments/1/2/cover.png", KindGame, "1", "https://media.discordapp.net/attachments/1/2/cover.png"},
		{"absolute https", "https://example.com/a.png", KindGame, "1", "https://example.com/a.png"},
		{"absolute http", "http://example.com/a.png", KindListening, "1", "http://example.com/a.png"},
		{"application asset", "factorio_logo", KindGame, "383226320970055681", "https://cdn.discordapp.com/app-assets/383226320970055681/factorio_logo.png"},
		{"application asset without app id", "factorio_logo", KindGame, "", ""},
		{"empty", "", KindListening, "1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveImage(tt.raw, tt.kind, tt.appID))
		})
	}
}
