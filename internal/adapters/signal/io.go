package signal

import (
	"context"
	"time"

	"github.com/dkeye/huddle/internal/domain"
	"github.com/dkeye/huddle/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	s := ctl.Settings
	ticker := time.NewTicker(s.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(s.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(s.WriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

// readPump is the only reader of the socket, so events of one connection
// are handled strictly in arrival order.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnectionID, c *wsSignalConn) {
	logger := log.With().Str("module", "signal").Str("sid", string(id)).Logger()
	defer func() {
		logger.Info().Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(id)
		ctl.Limiter.Forget(id)
		c.Close()
	}()

	s := ctl.Settings
	c.ws.SetReadLimit(s.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("readPump read error")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
		if mt != websocket.TextMessage {
			ctl.Orch.Reject(id, &protocol.ValidationError{Code: protocol.CodeBadPayload, Message: "text frames only"})
			continue
		}
		ctl.handleFrame(id, data)
	}
}

func (ctl *SignalWSController) handleFrame(id domain.ConnectionID, data []byte) {
	if !ctl.Limiter.Allow(id) {
		ctl.Orch.Reject(id, &protocol.ValidationError{Code: protocol.CodeRateLimited, Message: "too many events"})
		return
	}
	ev, err := protocol.Decode(data)
	if err != nil {
		ctl.Orch.Reject(id, err)
		return
	}
	ctl.Orch.Dispatch(id, ev)
}
