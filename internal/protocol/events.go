// Package protocol is the signaling wire format: one JSON object per
// WebSocket text frame, discriminated by its "type" field.
package protocol

type EventType string

// Inbound events.
const (
	EventJoinRoom           EventType = "join-room"
	EventLeaveRoom          EventType = "leave-room"
	EventOffer              EventType = "offer"
	EventAnswer             EventType = "answer"
	EventICECandidate       EventType = "ice-candidate"
	EventToggleMute         EventType = "toggle-mute"
	EventToggleVideo        EventType = "toggle-video"
	EventScreenShareStarted EventType = "screen-share-started"
	EventScreenShareStopped EventType = "screen-share-stopped"
	EventGetRoomInfo        EventType = "get-room-info"
	EventPing               EventType = "ping"
)

// Outbound-only events. offer, answer, ice-candidate and the screen-share
// events keep their inbound names on the way out.
const (
	EventRoomJoined   EventType = "room-joined"
	EventRoomLeft     EventType = "room-left"
	EventUserJoined   EventType = "user-joined"
	EventUserLeft     EventType = "user-left"
	EventMuteChanged  EventType = "participant-mute-changed"
	EventVideoChanged EventType = "participant-video-changed"
	EventHostChanged  EventType = "host-changed"
	EventRoomInfo     EventType = "room-info"
	EventRoomNotFound EventType = "room-not-found"
	EventPong         EventType = "pong"
	EventError        EventType = "error"
)
