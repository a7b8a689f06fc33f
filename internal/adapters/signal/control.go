package signal

import "time"

// Settings are the per-socket transport limits.
type Settings struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func DefaultSettings() Settings {
	return Settings{
		ReadLimit:  64 * 1024,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 64,
	}
}

// withDefaults fills zero fields and keeps the ping period below the pong
// wait.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.ReadLimit <= 0 {
		s.ReadLimit = d.ReadLimit
	}
	if s.PongWait <= 0 {
		s.PongWait = d.PongWait
	}
	if s.PingPeriod <= 0 || s.PingPeriod >= s.PongWait {
		s.PingPeriod = s.PongWait * 9 / 10
	}
	if s.WriteWait <= 0 {
		s.WriteWait = d.WriteWait
	}
	if s.SendBuffer <= 0 {
		s.SendBuffer = d.SendBuffer
	}
	return s
}
