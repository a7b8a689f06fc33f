package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Inbound is the sum type of client events.
type Inbound interface {
	Event() EventType
}

type JoinRoom struct {
	RoomID   string `json:"roomId" validate:"required,maxbytes=128"`
	UserName string `json:"userName" validate:"required,maxbytes=64"`
}

type LeaveRoom struct{}

// Relay is an offer, answer or ICE candidate addressed to one connection.
// Payload is opaque and forwarded as received.
type Relay struct {
	Kind    EventType
	To      string
	Payload json.RawMessage
}

type ToggleMute struct {
	IsMuted *bool `json:"isMuted" validate:"required"`
}

type ToggleVideo struct {
	IsVideoOff *bool `json:"isVideoOff" validate:"required"`
}

// ScreenShare is a stateless room broadcast; Payload is optional.
type ScreenShare struct {
	Kind    EventType
	Payload json.RawMessage
}

type GetRoomInfo struct {
	RoomID string `json:"roomId" validate:"omitempty,maxbytes=128"`
}

type Ping struct{}

func (JoinRoom) Event() EventType      { return EventJoinRoom }
func (LeaveRoom) Event() EventType     { return EventLeaveRoom }
func (r Relay) Event() EventType       { return r.Kind }
func (ToggleMute) Event() EventType    { return EventToggleMute }
func (ToggleVideo) Event() EventType   { return EventToggleVideo }
func (s ScreenShare) Event() EventType { return s.Kind }
func (GetRoomInfo) Event() EventType   { return EventGetRoomInfo }
func (Ping) Event() EventType          { return EventPing }

type relayWire struct {
	To        string          `json:"to" validate:"required,maxbytes=64"`
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
}

type screenShareWire struct {
	Payload json.RawMessage `json:"payload"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Limits are in bytes, like the domain checks; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

// trimmer is implemented by payloads whose strings are trimmed before
// validation.
type trimmer interface {
	trim()
}

func (p *JoinRoom) trim() {
	p.RoomID = strings.TrimSpace(p.RoomID)
	p.UserName = strings.TrimSpace(p.UserName)
}

func (p *GetRoomInfo) trim() {
	p.RoomID = strings.TrimSpace(p.RoomID)
}

// Decode parses one frame into a typed event. Every failure is a
// *ValidationError.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ValidationError{Code: CodeBadPayload, Message: "malformed json"}
	}

	switch env.Type {
	case EventJoinRoom:
		var p JoinRoom
		if err := decodeInto(env.Type, data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventLeaveRoom:
		return LeaveRoom{}, nil

	case EventOffer, EventAnswer, EventICECandidate:
		var w relayWire
		if err := decodeInto(env.Type, data, &w); err != nil {
			return nil, err
		}
		field, payload := relayField(env.Type, w)
		if isEmptyPayload(payload) {
			return nil, invalid(env.Type, field, "required")
		}
		return Relay{Kind: env.Type, To: w.To, Payload: payload}, nil

	case EventToggleMute:
		var p ToggleMute
		if err := decodeInto(env.Type, data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventToggleVideo:
		var p ToggleVideo
		if err := decodeInto(env.Type, data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventScreenShareStarted, EventScreenShareStopped:
		var w screenShareWire
		if err := decodeInto(env.Type, data, &w); err != nil {
			return nil, err
		}
		if isEmptyPayload(w.Payload) {
			w.Payload = nil
		}
		return ScreenShare{Kind: env.Type, Payload: w.Payload}, nil

	case EventGetRoomInfo:
		var p GetRoomInfo
		if err := decodeInto(env.Type, data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventPing:
		return Ping{}, nil

	case "":
		return nil, &ValidationError{Code: CodeBadPayload, Field: "type", Message: "missing event type"}

	default:
		return nil, &ValidationError{Code: CodeUnknownEvent, Event: env.Type, Message: "unknown event"}
	}
}

func decodeInto(ev EventType, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return &ValidationError{Code: CodeBadPayload, Event: ev, Message: err.Error()}
	}
	if t, ok := dst.(trimmer); ok {
		t.trim()
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalid(ev, fe.Field(), fe.Tag())
		}
		return invalid(ev, "", err.Error())
	}
	return nil
}

func relayField(ev EventType, w relayWire) (string, json.RawMessage) {
	switch ev {
	case EventOffer:
		return "offer", w.Offer
	case EventAnswer:
		return "answer", w.Answer
	default:
		return "candidate", w.Candidate
	}
}

func isEmptyPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
