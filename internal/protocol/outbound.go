package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/huddle/internal/core"
	"github.com/pion/webrtc/v4"
)

// Participant is how a room member is shown to clients.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsHost     bool   `json:"isHost"`
	IsMuted    bool   `json:"isMuted"`
	IsVideoOff bool   `json:"isVideoOff"`
}

// RoomView is the room-info shape shared by the socket and the HTTP API.
type RoomView struct {
	ID               string        `json:"id"`
	Participants     []Participant `json:"participants"`
	Host             string        `json:"host"`
	ParticipantCount int           `json:"participantCount"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// RoomSummary is one entry of the room listing.
type RoomSummary struct {
	ID               string    `json:"id"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        time.Time `json:"createdAt"`
	Host             string    `json:"host"`
}

type RoomJoined struct {
	Type         EventType          `json:"type"`
	RoomID       string             `json:"roomId"`
	SelfID       string             `json:"selfId"`
	Participants []Participant      `json:"participants"`
	IsHost       bool               `json:"isHost"`
	ICEServers   []webrtc.ICEServer `json:"iceServers,omitempty"`
}

type RoomLeft struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId"`
}

type UserJoined struct {
	Type   EventType `json:"type"`
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	IsHost bool      `json:"isHost"`
}

type UserLeft struct {
	Type EventType `json:"type"`
	ID   string    `json:"id"`
	Name string    `json:"name"`
}

// RelayOut carries exactly one of Offer, Answer or Candidate.
type RelayOut struct {
	Type      EventType       `json:"type"`
	From      string          `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type MuteChanged struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id"`
	IsMuted bool      `json:"isMuted"`
}

type VideoChanged struct {
	Type       EventType `json:"type"`
	ID         string    `json:"id"`
	IsVideoOff bool      `json:"isVideoOff"`
}

type ScreenShareOut struct {
	Type    EventType       `json:"type"`
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type HostChanged struct {
	Type        EventType `json:"type"`
	NewHostID   string    `json:"newHostId"`
	NewHostName string    `json:"newHostName"`
}

type RoomInfo struct {
	Type EventType `json:"type"`
	RoomView
}

type RoomNotFound struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId"`
}

type Pong struct {
	Type EventType `json:"type"`
}

type ErrorOut struct {
	Type    EventType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Event   EventType `json:"event,omitempty"`
	Field   string    `json:"field,omitempty"`
}

// NewRelayOut tags payload with its sender under the kind's field name.
func NewRelayOut(kind EventType, from string, payload json.RawMessage) RelayOut {
	out := RelayOut{Type: kind, From: from}
	switch kind {
	case EventOffer:
		out.Offer = payload
	case EventAnswer:
		out.Answer = payload
	default:
		out.Candidate = payload
	}
	return out
}

func NewHostChanged(h core.MemberDTO) HostChanged {
	return HostChanged{Type: EventHostChanged, NewHostID: string(h.ID), NewHostName: h.Name}
}

func NewErrorOut(err error) ErrorOut {
	if ve, ok := AsValidation(err); ok {
		return ErrorOut{Type: EventError, Code: ve.Code, Message: ve.Message, Event: ve.Event, Field: ve.Field}
	}
	return ErrorOut{Type: EventError, Code: "internal", Message: err.Error()}
}

// Flags are the per-connection media flags kept outside the room.
type Flags struct {
	Muted    bool
	VideoOff bool
}

// NewParticipant merges a room member with its connection flags.
func NewParticipant(m core.MemberDTO, f Flags) Participant {
	return Participant{
		ID:         string(m.ID),
		Name:       m.Name,
		IsHost:     m.IsHost,
		IsMuted:    f.Muted,
		IsVideoOff: f.VideoOff,
	}
}

// NewParticipants keeps the member order; flags may be nil.
func NewParticipants(members []core.MemberDTO, flags func(core.MemberDTO) Flags) []Participant {
	out := make([]Participant, 0, len(members))
	for _, m := range members {
		var f Flags
		if flags != nil {
			f = flags(m)
		}
		out = append(out, NewParticipant(m, f))
	}
	return out
}

func NewRoomView(s core.RoomSnapshot, flags func(core.MemberDTO) Flags) RoomView {
	return RoomView{
		ID:               string(s.ID),
		Participants:     NewParticipants(s.Members, flags),
		Host:             string(s.Host),
		ParticipantCount: s.Count(),
		CreatedAt:        s.CreatedAt,
	}
}

func NewRoomSummary(s core.RoomSnapshot) RoomSummary {
	return RoomSummary{
		ID:               string(s.ID),
		ParticipantCount: s.Count(),
		CreatedAt:        s.CreatedAt,
		Host:             string(s.Host),
	}
}

// Encode marshals an outbound event into a frame. HTML characters are
// left as they are; browsers read frames with JSON.parse.
func Encode(v any) (core.Frame, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return core.Frame(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// EncodeRelay writes the payload into the frame verbatim, so the target
// receives exactly the bytes the sender wrote.
func EncodeRelay(r RelayOut) (core.Frame, error) {
	field, payload := r.payload()
	if !json.Valid(payload) {
		return nil, errors.New("relay payload is not valid json")
	}
	head, err := Encode(struct {
		Type EventType `json:"type"`
		From string    `json:"from"`
	}{r.Type, r.From})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(head)+len(field)+len(payload)+5)
	out = append(out, head[:len(head)-1]...)
	out = append(out, `,"`...)
	out = append(out, field...)
	out = append(out, `":`...)
	out = append(out, payload...)
	out = append(out, '}')
	return core.Frame(out), nil
}

func (r RelayOut) payload() (string, json.RawMessage) {
	switch {
	case r.Offer != nil:
		return "offer", r.Offer
	case r.Answer != nil:
		return "answer", r.Answer
	default:
		return "candidate", r.Candidate
	}
}
