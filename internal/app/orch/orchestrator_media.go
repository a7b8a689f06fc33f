package orch

import (
	"github.com/dkeye/huddle/internal/domain"
	"github.com/dkeye/huddle/internal/metrics"
	"github.com/dkeye/huddle/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Relay forwards an offer, answer or candidate to its target with the
// sender attached. The payload is never inspected. An unknown target is a
// silent drop.
func (o *Orchestrator) Relay(from domain.ConnectionID, r protocol.Relay) {
	to := domain.ConnectionID(r.To)
	conn, ok := o.Registry.Conn(to)
	if !ok {
		o.Metrics.RelayDropped(metrics.ReasonUnknownTarget)
		log.Debug().Str("module", "orch").Str("sid", string(from)).Str("to", r.To).Str("type", string(r.Kind)).Msg("relay target gone")
		return
	}
	frame, err := protocol.EncodeRelay(protocol.NewRelayOut(r.Kind, string(from), r.Payload))
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode relay")
		return
	}
	room, _ := o.Registry.RoomOf(to)
	if o.deliver(room, to, conn, frame) {
		o.Metrics.RelayForwarded(string(r.Kind))
		return
	}
	o.Metrics.RelayDropped(metrics.ReasonUndelivered)
}

func (o *Orchestrator) SetMuted(id domain.ConnectionID, muted bool) {
	roomID, ok := o.Registry.SetMuted(id, muted)
	if !ok || roomID == "" {
		return
	}
	o.broadcast(roomID, o.Rooms.OtherParticipants(roomID, id), protocol.MuteChanged{
		Type:    protocol.EventMuteChanged,
		ID:      string(id),
		IsMuted: muted,
	})
}

func (o *Orchestrator) SetVideoOff(id domain.ConnectionID, off bool) {
	roomID, ok := o.Registry.SetVideoOff(id, off)
	if !ok || roomID == "" {
		return
	}
	o.broadcast(roomID, o.Rooms.OtherParticipants(roomID, id), protocol.VideoChanged{
		Type:       protocol.EventVideoChanged,
		ID:         string(id),
		IsVideoOff: off,
	})
}

// ScreenShare announces a share start or stop to the rest of the room.
// Share state is not kept.
func (o *Orchestrator) ScreenShare(id domain.ConnectionID, s protocol.ScreenShare) {
	sess, ok := o.Registry.Get(id)
	if !ok || sess.Room == "" {
		return
	}
	o.broadcast(sess.Room, o.Rooms.OtherParticipants(sess.Room, id), protocol.ScreenShareOut{
		Type:    s.Kind,
		ID:      string(id),
		Name:    sess.Client.DisplayName,
		Payload: s.Payload,
	})
}
