package orch

import (
	"errors"

	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
	"github.com/dkeye/huddle/internal/metrics"
	"github.com/dkeye/huddle/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Orchestrator turns decoded client events into room registry operations
// and outbound messages. Every send happens after the registry call has
// returned, so no room lock is held while touching a socket queue.
type Orchestrator struct {
	Registry   *app.Registry
	Rooms      core.RoomManager
	Policy     app.Policy
	Metrics    *metrics.Metrics
	ICEServers []webrtc.ICEServer
}

// Connect registers a freshly upgraded socket.
func (o *Orchestrator) Connect(client *domain.Client, conn core.SignalConnection, cancel func()) {
	o.Registry.Bind(client, conn, cancel)
}

// Dispatch runs one inbound event to completion. The transport calls it
// from the connection's single reader goroutine.
func (o *Orchestrator) Dispatch(id domain.ConnectionID, ev protocol.Inbound) {
	o.Metrics.EventReceived(string(ev.Event()))
	switch e := ev.(type) {
	case protocol.JoinRoom:
		o.Join(id, e.RoomID, e.UserName)
	case protocol.LeaveRoom:
		o.Leave(id)
	case protocol.Relay:
		o.Relay(id, e)
	case protocol.ToggleMute:
		o.SetMuted(id, *e.IsMuted)
	case protocol.ToggleVideo:
		o.SetVideoOff(id, *e.IsVideoOff)
	case protocol.ScreenShare:
		o.ScreenShare(id, e)
	case protocol.GetRoomInfo:
		o.RoomInfo(id, e.RoomID)
	case protocol.Ping:
		o.sendTo(id, protocol.Pong{Type: protocol.EventPong})
	default:
		log.Warn().Str("module", "orch").Str("sid", string(id)).Str("type", string(ev.Event())).Msg("unhandled event")
	}
}

// Reject answers a frame the codec refused.
func (o *Orchestrator) Reject(id domain.ConnectionID, err error) {
	out := protocol.NewErrorOut(err)
	o.Metrics.EventRejected(out.Code)
	log.Debug().Str("module", "orch").Str("sid", string(id)).Err(err).Msg("rejected frame")
	o.sendTo(id, out)
}

func (o *Orchestrator) sendTo(id domain.ConnectionID, v any) {
	conn, ok := o.Registry.Conn(id)
	if !ok {
		return
	}
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return
	}
	room, _ := o.Registry.RoomOf(id)
	o.deliver(room, id, conn, frame)
}

// broadcast encodes v once and queues it to every listed member.
func (o *Orchestrator) broadcast(room domain.RoomID, to []core.MemberDTO, v any) {
	if len(to) == 0 {
		return
	}
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return
	}
	for _, m := range to {
		conn, ok := o.Registry.Conn(m.ID)
		if !ok {
			continue
		}
		o.deliver(room, m.ID, conn, frame)
	}
}

func (o *Orchestrator) deliver(room domain.RoomID, id domain.ConnectionID, conn core.SignalConnection, frame core.Frame) bool {
	err := conn.TrySend(frame)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrBackpressure):
		o.onBackpressure(room, id)
	default:
		log.Debug().Str("module", "orch").Str("sid", string(id)).Err(err).Msg("send skipped")
	}
	return false
}

func (o *Orchestrator) onBackpressure(room domain.RoomID, id domain.ConnectionID) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(room, id) {
	case app.KickMember:
		o.Metrics.Backpressure("kick")
		log.Warn().Str("module", "orch").Str("sid", string(id)).Str("room", string(room)).Msg("kicking slow member")
		o.Registry.Cancel(id)
	case app.DropFrame:
		o.Metrics.Backpressure("drop")
	case app.MarkSlow, app.NoAction:
	}
}

// flags looks up the media flags of the given members in one pass.
func (o *Orchestrator) flags(members []core.MemberDTO) func(core.MemberDTO) protocol.Flags {
	ids := make([]domain.ConnectionID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	clients := o.Registry.Clients(ids...)
	return func(m core.MemberDTO) protocol.Flags {
		c := clients[m.ID]
		return protocol.Flags{Muted: c.Muted, VideoOff: c.VideoOff}
	}
}
