package app

import (
	"context"
	"sync"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Client *domain.Client
	Conn   core.SignalConnection
	Room   domain.RoomID
	Cancel context.CancelFunc
}

// Session is a copy of one directory entry.
type Session struct {
	Client domain.Client
	Conn   core.SignalConnection
	Room   domain.RoomID
}

// Registry is the connection directory: transport handles and per-socket
// flags. Room membership truth lives in the RoomManager; Room here is only
// the connection's own pointer to it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnectionID]*sessionEntry),
	}
}

func (r *Registry) Bind(client *domain.Client, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[client.ID] = &sessionEntry{Client: client, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(client.ID)).Msg("bound session")
}

func (r *Registry) Unbind(id domain.ConnectionID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("unbind session")
	return e.view(), true
}

func (r *Registry) Get(id domain.ConnectionID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return e.view(), true
}

func (r *Registry) Conn(id domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) RoomOf(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

// Enter records the room and display name chosen on join.
func (r *Registry) Enter(id domain.ConnectionID, room domain.RoomID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	e.Room = room
	e.Client.DisplayName = name
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) ClearRoom(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.Room = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("removed room association")
}

// SetMuted updates the flag and returns the connection's room, if any.
func (r *Registry) SetMuted(id domain.ConnectionID, muted bool) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	e.Client.Muted = muted
	return e.Room, true
}

func (r *Registry) SetVideoOff(id domain.ConnectionID, off bool) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	e.Client.VideoOff = off
	return e.Room, true
}

// Clients returns copies of the given connections' client records,
// skipping unknown ids.
func (r *Registry) Clients(ids ...domain.ConnectionID) map[domain.ConnectionID]domain.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.ConnectionID]domain.Client, len(ids))
	for _, id := range ids {
		if e, ok := r.sessions[id]; ok {
			out[id] = *e.Client
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel ends the connection's context; the transport pumps exit and run
// the normal disconnect path.
func (r *Registry) Cancel(id domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("canceled session")
	return true
}

func (e *sessionEntry) view() Session {
	return Session{Client: *e.Client, Conn: e.Conn, Room: e.Room}
}
