package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is a threadsafe in-memory room aggregate.
// It never touches transport resources.
type Room struct {
	id        domain.RoomID
	createdAt time.Time

	mu         sync.Mutex
	members    map[domain.ConnectionID]*domain.Member
	nextSeq    uint64
	host       domain.ConnectionID
	emptySince time.Time
	// closed rooms have been dropped from their manager and accept no joins.
	closed bool
}

func NewRoom(id domain.RoomID, now time.Time) *Room {
	return &Room{
		id:         id,
		createdAt:  now,
		members:    make(map[domain.ConnectionID]*domain.Member),
		emptySince: now,
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

// Add inserts m. ok is false when the room is closed and the caller has to
// retry on a fresh room. first reports this call took the room from empty to
// one member. Re-adding an existing member only refreshes its name.
func (r *Room) Add(m domain.Member) (snap RoomSnapshot, first bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return RoomSnapshot{}, false, false
	}
	if cur, exists := r.members[m.ID]; exists {
		cur.Name = m.Name
		return r.snapshotLocked(), false, true
	}
	r.nextSeq++
	m.Seq = r.nextSeq
	first = len(r.members) == 0
	r.members[m.ID] = &m
	if first || r.host == "" {
		r.host = m.ID
	}
	r.emptySince = time.Time{}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(m.ID)).Uint64("seq", m.Seq).Msg("member added")
	return r.snapshotLocked(), first, true
}

// Remove drops conn. When the room becomes empty it is closed so a manager
// can delete it; closeEmpty=false keeps it open for the sweeper instead.
func (r *Room) Remove(conn domain.ConnectionID, now time.Time, closeEmpty bool) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[conn]
	if !ok {
		return LeaveResult{}, false
	}
	delete(r.members, conn)
	res := LeaveResult{
		Member:  toDTO(m, r.host),
		WasHost: r.host == conn,
	}
	if len(r.members) == 0 {
		r.host = ""
		r.emptySince = now
		if closeEmpty {
			r.closed = true
			res.Deleted = true
		}
	} else if res.WasHost {
		next := r.electLocked()
		dto := toDTO(next, next.ID)
		res.NewHost = &dto
	}
	res.Room = r.snapshotLocked()
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(conn)).Bool("was_host", res.WasHost).Msg("member removed")
	return res, true
}

// electLocked makes the earliest-joined remaining member host.
func (r *Room) electLocked() *domain.Member {
	var next *domain.Member
	for _, m := range r.members {
		if next == nil || m.Seq < next.Seq {
			next = m
		}
	}
	if next != nil {
		r.host = next.ID
	}
	return next
}

// RepairHost re-elects when the host is not a participant. It reports the
// new host when a repair happened.
func (r *Room) RepairHost() (MemberDTO, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 {
		return MemberDTO{}, false
	}
	if _, ok := r.members[r.host]; ok {
		return MemberDTO{}, false
	}
	log.Warn().Str("module", "core.room").Str("room", string(r.id)).Str("host", string(r.host)).Msg("host not a participant, re-electing")
	next := r.electLocked()
	return toDTO(next, next.ID), true
}

// CloseIfIdle closes the room when it has been empty for longer than grace.
func (r *Room) CloseIfIdle(now time.Time, grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if len(r.members) > 0 || r.emptySince.IsZero() {
		return false
	}
	if now.Sub(r.emptySince) <= grace {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomSnapshot {
	out := RoomSnapshot{
		ID:        r.id,
		Host:      r.host,
		CreatedAt: r.createdAt,
		Members:   make([]MemberDTO, 0, len(r.members)),
	}
	for _, m := range r.members {
		out.Members = append(out.Members, toDTO(m, r.host))
	}
	sort.Slice(out.Members, func(i, j int) bool { return out.Members[i].Seq < out.Members[j].Seq })
	return out
}

func toDTO(m *domain.Member, host domain.ConnectionID) MemberDTO {
	return MemberDTO{
		ID:       m.ID,
		Name:     m.Name,
		IsHost:   m.ID == host,
		JoinedAt: m.JoinedAt,
		Seq:      m.Seq,
	}
}
