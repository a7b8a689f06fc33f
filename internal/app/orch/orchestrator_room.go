package orch

import (
	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
	"github.com/dkeye/huddle/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Join puts the connection into roomID. A connection in another room leaves
// it first; joining the current room again only refreshes room-joined.
func (o *Orchestrator) Join(id domain.ConnectionID, rawRoom, rawName string) {
	roomID, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		o.Reject(id, &protocol.ValidationError{Code: protocol.CodeValidation, Event: protocol.EventJoinRoom, Field: "roomId", Message: err.Error()})
		return
	}
	name, err := domain.NormalizeDisplayName(rawName)
	if err != nil {
		o.Reject(id, &protocol.ValidationError{Code: protocol.CodeValidation, Event: protocol.EventJoinRoom, Field: "userName", Message: err.Error()})
		return
	}
	sess, ok := o.Registry.Get(id)
	if !ok {
		return
	}

	rejoin := sess.Room == roomID
	if sess.Room != "" && !rejoin {
		o.leaveRoom(id, sess.Room)
		log.Info().Str("module", "orch").Str("sid", string(id)).Str("from_room", string(sess.Room)).Msg("left previous room")
	}

	o.Registry.Enter(id, roomID, name)
	snap, created := o.Rooms.UpsertParticipant(roomID, domain.Member{ID: id, Name: name})
	self, _ := snap.Member(id)
	log.Info().Str("module", "orch").Str("sid", string(id)).Str("room", string(roomID)).Bool("created", created).Bool("host", self.IsHost).Msg("added to room")

	others := snap.Others(id)
	o.sendTo(id, protocol.RoomJoined{
		Type:         protocol.EventRoomJoined,
		RoomID:       string(roomID),
		SelfID:       string(id),
		Participants: protocol.NewParticipants(others, o.flags(others)),
		IsHost:       self.IsHost,
		ICEServers:   o.ICEServers,
	})
	if rejoin {
		return
	}
	o.broadcast(roomID, others, protocol.UserJoined{
		Type:   protocol.EventUserJoined,
		ID:     string(id),
		Name:   name,
		IsHost: self.IsHost,
	})
}

// Leave takes the connection out of its room and keeps the socket open.
func (o *Orchestrator) Leave(id domain.ConnectionID) {
	roomID, ok := o.Registry.RoomOf(id)
	if !ok {
		o.Reject(id, &protocol.ValidationError{Code: protocol.CodeNotInRoom, Event: protocol.EventLeaveRoom, Message: "not in a room"})
		return
	}
	o.leaveRoom(id, roomID)
	o.sendTo(id, protocol.RoomLeft{Type: protocol.EventRoomLeft, RoomID: string(roomID)})
}

// Disconnect runs when the transport is gone: the connection leaves its
// room and is dropped from the directory.
func (o *Orchestrator) Disconnect(id domain.ConnectionID) {
	sess, ok := o.Registry.Unbind(id)
	if !ok {
		return
	}
	if sess.Room != "" {
		o.leaveRoom(id, sess.Room)
	}
	log.Info().Str("module", "orch").Str("sid", string(id)).Msg("disconnected")
}

func (o *Orchestrator) leaveRoom(id domain.ConnectionID, roomID domain.RoomID) {
	o.Registry.ClearRoom(id)
	res, ok := o.Rooms.RemoveParticipant(roomID, id)
	if !ok {
		return
	}
	remaining := res.Room.Members
	o.broadcast(roomID, remaining, protocol.UserLeft{
		Type: protocol.EventUserLeft,
		ID:   string(id),
		Name: res.Member.Name,
	})
	if res.NewHost != nil {
		log.Info().Str("module", "orch").Str("room", string(roomID)).Str("host", string(res.NewHost.ID)).Msg("host changed")
		o.broadcast(roomID, remaining, protocol.NewHostChanged(*res.NewHost))
	}
}

// AnnounceHostRepair tells a room about a host the sweeper re-elected.
func (o *Orchestrator) AnnounceHostRepair(rep core.HostRepair) {
	o.Metrics.HostRepaired()
	snap, ok := o.Rooms.Get(rep.Room)
	if !ok {
		return
	}
	o.broadcast(rep.Room, snap.Members, protocol.NewHostChanged(rep.NewHost))
}

// RoomInfo answers get-room-info. An empty id means the caller's room.
func (o *Orchestrator) RoomInfo(id domain.ConnectionID, rawRoom string) {
	roomID := domain.RoomID(rawRoom)
	if roomID == "" {
		roomID, _ = o.Registry.RoomOf(id)
	}
	view, ok := o.RoomView(roomID)
	if !ok {
		o.sendTo(id, protocol.RoomNotFound{Type: protocol.EventRoomNotFound, RoomID: string(roomID)})
		return
	}
	o.sendTo(id, protocol.RoomInfo{Type: protocol.EventRoomInfo, RoomView: view})
}

func (o *Orchestrator) RoomView(roomID domain.RoomID) (protocol.RoomView, bool) {
	if roomID == "" {
		return protocol.RoomView{}, false
	}
	snap, ok := o.Rooms.Get(roomID)
	if !ok {
		return protocol.RoomView{}, false
	}
	return protocol.NewRoomView(snap, o.flags(snap.Members)), true
}

func (o *Orchestrator) RoomSummaries() []protocol.RoomSummary {
	rooms := o.Rooms.List()
	out := make([]protocol.RoomSummary, 0, len(rooms))
	for _, snap := range rooms {
		out = append(out, protocol.NewRoomSummary(snap))
	}
	return out
}
