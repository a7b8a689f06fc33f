package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/huddle/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJoinRoom(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"join-room","roomId":" standup ","userName":"Ada"}`))
	require.NoError(t, err)
	join, ok := ev.(JoinRoom)
	require.True(t, ok)
	assert.Equal(t, "standup", join.RoomID)
	assert.Equal(t, "Ada", join.UserName)
	assert.Equal(t, EventJoinRoom, join.Event())
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		code  string
		field string
	}{
		{"not json", `{"type":`, CodeBadPayload, ""},
		{"no type", `{"roomId":"r"}`, CodeBadPayload, "type"},
		{"unknown", `{"type":"teleport"}`, CodeUnknownEvent, ""},
		{"join without room", `{"type":"join-room","userName":"a"}`, CodeValidation, "roomId"},
		{"join blank room", `{"type":"join-room","roomId":"  ","userName":"a"}`, CodeValidation, "roomId"},
		{"join without name", `{"type":"join-room","roomId":"r"}`, CodeValidation, "userName"},
		{"offer without target", `{"type":"offer","offer":{"sdp":"x"}}`, CodeValidation, "to"},
		{"offer without sdp", `{"type":"offer","to":"b"}`, CodeValidation, "offer"},
		{"answer null", `{"type":"answer","to":"b","answer":null}`, CodeValidation, "answer"},
		{"candidate wrong field", `{"type":"ice-candidate","to":"b","offer":{}}`, CodeValidation, "candidate"},
		{"mute without flag", `{"type":"toggle-mute"}`, CodeValidation, "isMuted"},
		{"video wrong type", `{"type":"toggle-video","isVideoOff":"yes"}`, CodeBadPayload, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			require.Error(t, err)
			ve, ok := AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, ve.Code)
			if tc.field != "" {
				assert.Equal(t, tc.field, ve.Field)
			}
		})
	}
}

func TestDecodeRelayKeepsPayloadBytes(t *testing.T) {
	payload := `{"candidate":"candidate:1 1 udp 2122260223 10.0.0.2 54321 typ host","sdpMid":"0","sdpMLineIndex":0}`
	ev, err := Decode([]byte(`{"type":"ice-candidate","to":"peer-b","candidate":` + payload + `}`))
	require.NoError(t, err)
	relay, ok := ev.(Relay)
	require.True(t, ok)
	assert.Equal(t, EventICECandidate, relay.Event())
	assert.Equal(t, "peer-b", relay.To)
	assert.Equal(t, payload, string(relay.Payload))

	frame, err := EncodeRelay(NewRelayOut(relay.Kind, "peer-a", relay.Payload))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ice-candidate","from":"peer-a","candidate":`+payload+`}`, string(frame))
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &out))
	assert.NotContains(t, out, "offer")
}

func TestEncodeRelayWritesPayloadVerbatim(t *testing.T) {
	payload := "{ \"sdp\": \"a=x-note:<b>&co\u2028\" }"
	ev, err := Decode([]byte(`{"type":"offer","to":"b","offer":` + payload + `}`))
	require.NoError(t, err)

	frame, err := EncodeRelay(NewRelayOut(EventOffer, "a", ev.(Relay).Payload))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"offer","from":"a","offer":`+payload+`}`, string(frame))

	_, err = EncodeRelay(NewRelayOut(EventAnswer, "a", json.RawMessage(`{"x":`)))
	assert.Error(t, err)
}

func TestEncodeKeepsHTMLCharacters(t *testing.T) {
	frame, err := Encode(UserJoined{Type: EventUserJoined, ID: "a", Name: "<Ada & co>"})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"user-joined","id":"a","name":"<Ada & co>","isHost":false}`, string(frame))
}

func TestJoinLimitsAreBytes(t *testing.T) {
	join := func(room, name string) error {
		_, err := Decode([]byte(`{"type":"join-room","roomId":"` + room + `","userName":"` + name + `"}`))
		return err
	}
	// 32 two-byte runes is exactly 64 bytes.
	require.NoError(t, join("r", strings.Repeat("é", 32)))

	err := join("r", strings.Repeat("é", 33))
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ve.Code)
	assert.Equal(t, "userName", ve.Field)

	require.NoError(t, join(strings.Repeat("ü", 64), "Ada"))
	ve, ok = AsValidation(join(strings.Repeat("ü", 65), "Ada"))
	require.True(t, ok)
	assert.Equal(t, "roomId", ve.Field)

	require.NoError(t, join("r", "  "+strings.Repeat("a", 64)+"  "))
}

func TestDecodeToggleAndScreenShare(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"toggle-mute","isMuted":false}`))
	require.NoError(t, err)
	mute := ev.(ToggleMute)
	require.NotNil(t, mute.IsMuted)
	assert.False(t, *mute.IsMuted)

	ev, err = Decode([]byte(`{"type":"screen-share-started"}`))
	require.NoError(t, err)
	ss := ev.(ScreenShare)
	assert.Equal(t, EventScreenShareStarted, ss.Event())
	assert.Nil(t, ss.Payload)

	ev, err = Decode([]byte(`{"type":"screen-share-stopped","payload":{"streamId":"s1"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"streamId":"s1"}`, string(ev.(ScreenShare).Payload))

	ev, err = Decode([]byte(`{"type":"get-room-info"}`))
	require.NoError(t, err)
	assert.Equal(t, "", ev.(GetRoomInfo).RoomID)

	ev, err = Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, EventPing, ev.Event())
}

func TestRoomViewAndErrors(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	snap := core.RoomSnapshot{
		ID:        "standup",
		Host:      "a",
		CreatedAt: created,
		Members: []core.MemberDTO{
			{ID: "a", Name: "Ada", IsHost: true},
			{ID: "b", Name: "Bob"},
		},
	}
	v := NewRoomView(snap, func(m core.MemberDTO) Flags { return Flags{Muted: m.ID == "b"} })
	assert.Equal(t, 2, v.ParticipantCount)
	assert.Equal(t, "a", v.Host)
	assert.True(t, v.Participants[1].IsMuted)
	assert.False(t, v.Participants[0].IsMuted)

	frame, err := Encode(RoomInfo{Type: EventRoomInfo, RoomView: v})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(frame, &got))
	assert.Equal(t, "room-info", got["type"])
	assert.Equal(t, "standup", got["id"])
	assert.EqualValues(t, 2, got["participantCount"])

	_, err = Decode([]byte(`{"type":"join-room"}`))
	out := NewErrorOut(err)
	assert.Equal(t, EventError, out.Type)
	assert.Equal(t, CodeValidation, out.Code)
	assert.Equal(t, EventJoinRoom, out.Event)
}
