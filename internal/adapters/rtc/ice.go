// Package rtc builds the ICE server list handed to browsers. The server
// never opens a peer connection itself.
package rtc

import (
	"fmt"
	"strings"

	"github.com/dkeye/huddle/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{"stun:stun.l.google.com:19302"},
		},
	}
}

// ICEServers validates every configured URL and converts the list. TURN
// entries must carry credentials.
func ICEServers(cfgs []config.ICEServer) ([]webrtc.ICEServer, error) {
	if len(cfgs) == 0 {
		return DefaultICEServers(), nil
	}
	out := make([]webrtc.ICEServer, 0, len(cfgs))
	for i, c := range cfgs {
		turn := false
		urls := make([]string, 0, len(c.URLs))
		for _, raw := range c.URLs {
			raw = strings.TrimSpace(raw)
			u, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("ice_servers[%d]: %q: %w", i, raw, err)
			}
			if u.Scheme == stun.SchemeTypeTURN || u.Scheme == stun.SchemeTypeTURNS {
				turn = true
			}
			urls = append(urls, raw)
		}
		if turn && (c.Username == "" || c.Credential == "") {
			return nil, fmt.Errorf("ice_servers[%d]: turn server needs username and credential", i)
		}
		s := webrtc.ICEServer{URLs: urls}
		if c.Username != "" {
			s.Username = c.Username
			s.Credential = c.Credential
		}
		out = append(out, s)
	}
	log.Info().Str("module", "rtc").Int("servers", len(out)).Msg("ice servers configured")
	return out, nil
}
