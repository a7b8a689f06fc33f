package core

//go:generate mockgen -destination=mock_core/signal_mock.go -package=mock_core github.com/dkeye/huddle/internal/core SignalConnection

import (
	"errors"
	"time"

	"github.com/dkeye/huddle/internal/domain"
)

// Frame is one encoded outbound message.
type Frame []byte

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. It returns ErrBackpressure when the
	// queue is full and ErrConnectionClosed after Close.
	TrySend(Frame) error
	Close()
}

// MemberDTO is a read-only view of a room member (no transport fields).
type MemberDTO struct {
	ID       domain.ConnectionID `json:"id"`
	Name     string              `json:"name"`
	IsHost   bool                `json:"isHost"`
	JoinedAt time.Time           `json:"joinedAt"`
	Seq      uint64              `json:"-"`
}

// RoomSnapshot is a consistent copy of a room taken under its lock.
// Members are ordered by join sequence.
type RoomSnapshot struct {
	ID        domain.RoomID       `json:"id"`
	Host      domain.ConnectionID `json:"host"`
	CreatedAt time.Time           `json:"createdAt"`
	Members   []MemberDTO         `json:"participants"`
}

func (s RoomSnapshot) Count() int { return len(s.Members) }

func (s RoomSnapshot) Member(id domain.ConnectionID) (MemberDTO, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return MemberDTO{}, false
}

// Others returns the members except the given connection, in join order.
func (s RoomSnapshot) Others(excluding domain.ConnectionID) []MemberDTO {
	out := make([]MemberDTO, 0, len(s.Members))
	for _, m := range s.Members {
		if m.ID != excluding {
			out = append(out, m)
		}
	}
	return out
}

// LeaveResult describes the effect of removing one participant.
type LeaveResult struct {
	Room    RoomSnapshot
	Member  MemberDTO
	WasHost bool
	// NewHost is set when the leaving member was host and someone remains.
	NewHost *MemberDTO
	// Deleted reports the room was dropped from the manager.
	Deleted bool
}

// HostRepair records a host re-election done outside the leave path.
type HostRepair struct {
	Room    domain.RoomID
	NewHost MemberDTO
}

type SweepReport struct {
	Removed []domain.RoomID
	Repairs []HostRepair
}

// RoomManager is the single source of truth for room membership.
// Every method is one critical section per room.
type RoomManager interface {
	// UpsertParticipant adds m to the room, creating it when unknown.
	// created is true only for the caller that took the room from zero to
	// one member, which also makes it host.
	UpsertParticipant(id domain.RoomID, m domain.Member) (snap RoomSnapshot, created bool)
	RemoveParticipant(id domain.RoomID, conn domain.ConnectionID) (LeaveResult, bool)
	OtherParticipants(id domain.RoomID, excluding domain.ConnectionID) []MemberDTO
	Get(id domain.RoomID) (RoomSnapshot, bool)
	List() []RoomSnapshot
	Sweep(now time.Time, grace time.Duration) SweepReport
}
