// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 64
	MaxRoomIDLen      = 128
)

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

// ConnectionID identifies one live signaling socket. It is assigned by the
// transport and never reused.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// Client is the per-socket identity. The name is whatever the browser sent;
// nothing here is authenticated.
type Client struct {
	ID          ConnectionID `json:"id"`
	DisplayName string       `json:"name"`
	Muted       bool         `json:"isMuted"`
	VideoOff    bool         `json:"isVideoOff"`
	ClientToken string       `json:"-"`
}

func NewClient(id ConnectionID, clientToken string) *Client {
	return &Client{ID: id, ClientToken: clientToken}
}

// NormalizeDisplayName trims and checks a client-supplied name.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}
