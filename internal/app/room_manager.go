package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager implements core.RoomManager. The map lock only guards the
// map; membership changes are serialized by each room's own lock.
// Lock order is manager -> room, never the reverse.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
	now   func() time.Time
}

var _ core.RoomManager = (*RoomManager)(nil)

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[domain.RoomID]*core.Room),
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (m *RoomManager) WithClock(now func() time.Time) *RoomManager {
	m.now = now
	return m
}

func (m *RoomManager) getOrCreate(id domain.RoomID) *core.Room {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok && !room.Closed() {
		return room
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok && !room.Closed() {
		return room
	}
	room = core.NewRoom(id, m.now())
	m.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (m *RoomManager) UpsertParticipant(id domain.RoomID, mem domain.Member) (core.RoomSnapshot, bool) {
	if mem.JoinedAt.IsZero() {
		mem.JoinedAt = m.now()
	}
	for {
		room := m.getOrCreate(id)
		snap, first, ok := room.Add(mem)
		if ok {
			return snap, first
		}
		// Closed between lookup and Add; getOrCreate replaces it next round.
	}
}

func (m *RoomManager) RemoveParticipant(id domain.RoomID, conn domain.ConnectionID) (core.LeaveResult, bool) {
	room, ok := m.lookup(id)
	if !ok {
		return core.LeaveResult{}, false
	}
	res, ok := room.Remove(conn, m.now(), true)
	if !ok {
		return core.LeaveResult{}, false
	}
	if res.Deleted {
		m.drop(id, room)
	}
	return res, true
}

func (m *RoomManager) OtherParticipants(id domain.RoomID, excluding domain.ConnectionID) []core.MemberDTO {
	snap, ok := m.Get(id)
	if !ok {
		return nil
	}
	return snap.Others(excluding)
}

// Get returns live rooms only; an empty room awaiting the sweeper is absent.
func (m *RoomManager) Get(id domain.RoomID) (core.RoomSnapshot, bool) {
	room, ok := m.lookup(id)
	if !ok {
		return core.RoomSnapshot{}, false
	}
	snap := room.Snapshot()
	if snap.Count() == 0 {
		return core.RoomSnapshot{}, false
	}
	return snap, true
}

func (m *RoomManager) List() []core.RoomSnapshot {
	m.mu.RLock()
	rooms := make([]*core.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]core.RoomSnapshot, 0, len(rooms))
	for _, r := range rooms {
		if snap := r.Snapshot(); snap.Count() > 0 {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count reports how many rooms are held, including ones awaiting a sweep.
func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *RoomManager) Sweep(now time.Time, grace time.Duration) core.SweepReport {
	m.mu.RLock()
	rooms := make([]*core.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	var rep core.SweepReport
	for _, r := range rooms {
		if h, ok := r.RepairHost(); ok {
			rep.Repairs = append(rep.Repairs, core.HostRepair{Room: r.ID(), NewHost: h})
		}
		if r.CloseIfIdle(now, grace) && m.drop(r.ID(), r) {
			rep.Removed = append(rep.Removed, r.ID())
		}
	}
	return rep
}

func (m *RoomManager) lookup(id domain.RoomID) (*core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// drop deletes id only if it still maps to room; a newer room under the
// same id is left alone.
func (m *RoomManager) drop(id domain.RoomID, room *core.Room) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[id]; !ok || cur != room {
		return false
	}
	delete(m.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	return true
}
