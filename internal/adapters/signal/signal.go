// Package signal is the WebSocket side of the gateway: one read pump and
// one write pump per socket, feeding decoded events to the orchestrator.
package signal

import (
	"context"
	"sync"

	"github.com/dkeye/huddle/internal/app/orch"
	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// ClientTokenKey is the gin context key of the browser session token.
const ClientTokenKey = "client_token"

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Limiter  *RateLimiter
	Settings Settings

	upgrader websocket.Upgrader
	pumps    conc.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, origins Origins, limiter *RateLimiter, s Settings) *SignalWSController {
	return &SignalWSController{
		Orch:     o,
		Limiter:  limiter,
		Settings: s.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.Check,
		},
	}
}

type wsSignalConn struct {
	ws   *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the pumps. ctx bounds the
// lifetime of the socket; canceling it closes the connection.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString(ClientTokenKey)

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.NewConnectionID()
	conn := &wsSignalConn{
		ws:   ws,
		send: make(chan core.Frame, ctl.Settings.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("sid", string(id)).Str("client_token", token).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(domain.NewClient(id, token), conn, cancel)

	ctl.pumps.Go(func() { ctl.writePump(ctx, conn) })
	ctl.pumps.Go(func() { ctl.readPump(ctx, cancel, id, conn) })
}

// Wait blocks until every pump has returned. A panicking pump is logged,
// not re-raised.
func (ctl *SignalWSController) Wait() {
	if r := ctl.pumps.WaitAndRecover(); r != nil {
		log.Error().Str("module", "signal").Str("panic", r.String()).Msg("pump panicked")
	}
}
