package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		kind     messageKind
		interval int64
		wantErr  bool
	}{
		{name: "hello", frame: `{"op":1}`, kind: msgHello},
		{name: "hello with interval", frame: `{"op":1,"d":{"heartbeat_interval":30000}}`, kind: msgHello, interval: 30000},
		{name: "hello with junk payload", frame: `{"op":1,"d":"x"}`, kind: msgHello},
		{name: "init state", frame: `{"op":0,"t":"INIT_STATE","d":` + samplePresence + `}`, kind: msgSnapshot},
		{name: "presence update", frame: `{"op":0,"t":"PRESENCE_UPDATE","d":` + samplePresence + `}`, kind: msgSnapshot},
		{name: "update without payload", frame: `{"op":0,"t":"PRESENCE_UPDATE","d":null}`, kind: msgIgnored},
		{name: "other event", frame: `{"op":0,"t":"SOMETHING_ELSE","d":{}}`, kind: msgIgnored},
		{name: "heartbeat echo", frame: `{"op":3}`, kind: msgIgnored},
		{name: "not json", frame: `hello`, wantErr: true},
		{name: "payload without user", frame: `{"op":0,"t":"INIT_STATE","d":{"discord_status":"online"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeInbound([]byte(tt.frame))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, msg.kind)
			assert.Equal(t, tt.interval, msg.heartbeatInterval)
		})
	}
}

func TestOutboundFrames(t *testing.T) {
	assert.JSONEq(t, subscribeJSON, string(subscribeFrame(testUserID)))
	assert.Equal(t, heartbeatJSON, string(heartbeatFrame()))
}
