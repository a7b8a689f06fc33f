package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

// RoomID is client supplied; two clients naming the same id meet in the
// same room.
type RoomID string

func ParseRoomID(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrRoomIDEmpty
	}
	if len(raw) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(raw), nil
}

// Member is one participant entry of a room. Seq is the room-local join
// order and decides host succession.
type Member struct {
	ID       ConnectionID
	Name     string
	Seq      uint64
	JoinedAt time.Time
}
