package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/huddle/internal/adapters/rtc"
	"github.com/dkeye/huddle/internal/adapters/signal"
	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/app/orch"
	"github.com/dkeye/huddle/internal/config"
	"github.com/dkeye/huddle/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://app.test"

type stack struct {
	srv   *httptest.Server
	orch  *orch.Orchestrator
	rooms *app.RoomManager
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &config.Config{Mode: "test", Secret: "test-secret", AllowedOrigins: []string{testOrigin}}
	rooms := app.NewRoomManager()
	reg := app.NewRegistry()
	m := metrics.New(metrics.Gauges{Rooms: rooms.Count, Connections: reg.Count})
	o := &orch.Orchestrator{
		Registry:   reg,
		Rooms:      rooms,
		Policy:     app.SimplePolicy{},
		Metrics:    m,
		ICEServers: rtc.DefaultICEServers(),
	}
	ctl := signal.NewSignalWSController(o, signal.NewOrigins(cfg.AllowedOrigins), signal.NewRateLimiter(100, time.Second), signal.DefaultSettings())
	engine := SetupRouter(ctx, cfg, Deps{Orch: o, Signal: ctl, Metrics: m})
	srv := httptest.NewServer(WithCORS(engine, cfg.AllowedOrigins))
	t.Cleanup(func() {
		cancel()
		srv.Close()
		ctl.Wait()
	})
	return &stack{srv: srv, orch: o, rooms: rooms}
}

func (s *stack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/ws/signal"
	h := http.Header{}
	h.Set("Origin", testOrigin)
	conn, resp, err := websocket.DefaultDialer.Dial(u, h)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *stack) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func send(t *testing.T, c *websocket.Conn, v string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(v)))
}

func read(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func readRaw(t *testing.T, c *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	return data
}

func TestStandupScenario(t *testing.T) {
	s := newStack(t)
	alice, bob := s.dial(t), s.dial(t)

	send(t, alice, `{"type":"join-room","roomId":"standup","userName":"Alice"}`)
	joined := read(t, alice)
	require.Equal(t, "room-joined", joined["type"])
	assert.Equal(t, true, joined["isHost"])
	assert.Empty(t, joined["participants"])
	assert.NotEmpty(t, joined["iceServers"])
	aliceID := joined["selfId"].(string)

	send(t, bob, `{"type":"join-room","roomId":"standup","userName":"Bob"}`)
	bJoined := read(t, bob)
	require.Equal(t, "room-joined", bJoined["type"])
	assert.Equal(t, false, bJoined["isHost"])
	parts := bJoined["participants"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, aliceID, parts[0].(map[string]any)["id"])
	bobID := bJoined["selfId"].(string)

	uj := read(t, alice)
	require.Equal(t, "user-joined", uj["type"])
	assert.Equal(t, bobID, uj["id"])
	assert.Equal(t, "Bob", uj["name"])

	offer := `{"type":"offer","sdp":"v=0\r\n"}`
	send(t, alice, `{"type":"offer","to":"`+bobID+`","offer":`+offer+`}`)
	var relayed struct {
		Type  string          `json:"type"`
		From  string          `json:"from"`
		Offer json.RawMessage `json:"offer"`
	}
	require.NoError(t, json.Unmarshal(readRaw(t, bob), &relayed))
	assert.Equal(t, "offer", relayed.Type)
	assert.Equal(t, aliceID, relayed.From)
	assert.Equal(t, offer, string(relayed.Offer))

	send(t, bob, `{"type":"answer","to":"`+aliceID+`","answer":{"type":"answer","sdp":"v=0"}}`)
	ans := read(t, alice)
	assert.Equal(t, "answer", ans["type"])
	assert.Equal(t, bobID, ans["from"])

	var list []map[string]any
	require.Equal(t, http.StatusOK, s.getJSON(t, "/api/rooms", &list))
	require.Len(t, list, 1)
	assert.Equal(t, "standup", list[0]["id"])
	assert.EqualValues(t, 2, list[0]["participantCount"])
	assert.Equal(t, aliceID, list[0]["host"])

	require.NoError(t, alice.Close())
	left := read(t, bob)
	require.Equal(t, "user-left", left["type"])
	assert.Equal(t, aliceID, left["id"])
	hc := read(t, bob)
	require.Equal(t, "host-changed", hc["type"])
	assert.Equal(t, bobID, hc["newHostId"])

	require.NoError(t, bob.Close())
	require.Eventually(t, func() bool {
		var rooms []map[string]any
		s.getJSON(t, "/api/rooms", &rooms)
		return len(rooms) == 0
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, s.rooms.Count())
}

func TestSocketErrorsAndInfo(t *testing.T) {
	s := newStack(t)
	c := s.dial(t)

	send(t, c, `{"type":"join-room","roomId":"standup"}`)
	e := read(t, c)
	assert.Equal(t, "error", e["type"])
	assert.Equal(t, "validation_failed", e["code"])
	assert.Equal(t, "userName", e["field"])

	send(t, c, `not json`)
	assert.Equal(t, "bad_payload", read(t, c)["code"])

	send(t, c, `{"type":"warp"}`)
	assert.Equal(t, "unknown_event", read(t, c)["code"])

	send(t, c, `{"type":"get-room-info","roomId":"nowhere"}`)
	nf := read(t, c)
	assert.Equal(t, "room-not-found", nf["type"])
	assert.Equal(t, "nowhere", nf["roomId"])

	send(t, c, `{"type":"ping"}`)
	assert.Equal(t, "pong", read(t, c)["type"])

	send(t, c, `{"type":"join-room","roomId":"standup","userName":"Ada"}`)
	require.Equal(t, "room-joined", read(t, c)["type"])
	send(t, c, `{"type":"get-room-info"}`)
	info := read(t, c)
	assert.Equal(t, "room-info", info["type"])
	assert.Equal(t, "standup", info["id"])

	send(t, c, `{"type":"leave-room"}`)
	assert.Equal(t, "room-left", read(t, c)["type"])
}

func TestHTTPEndpoints(t *testing.T) {
	s := newStack(t)

	var h map[string]string
	require.Equal(t, http.StatusOK, s.getJSON(t, "/health", &h))
	assert.Equal(t, "ok", h["status"])

	var nf map[string]string
	require.Equal(t, http.StatusNotFound, s.getJSON(t, "/api/rooms/missing", &nf))
	assert.Equal(t, "Room not found", nf["error"])

	var ice map[string][]map[string]any
	require.Equal(t, http.StatusOK, s.getJSON(t, "/api/ice-servers", &ice))
	require.Len(t, ice["iceServers"], 1)

	c := s.dial(t)
	send(t, c, `{"type":"join-room","roomId":"standup","userName":"Ada"}`)
	read(t, c)
	var view map[string]any
	require.Equal(t, http.StatusOK, s.getJSON(t, "/api/rooms/standup", &view))
	assert.EqualValues(t, 1, view["participantCount"])
	p := view["participants"].([]any)[0].(map[string]any)
	assert.Equal(t, "Ada", p["name"])
	assert.Equal(t, true, p["isHost"])

	resp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "huddle_rooms 1")
	assert.Contains(t, string(body), "huddle_connections 1")
}

func TestDisallowedOriginIsRejected(t *testing.T) {
	s := newStack(t)
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	h := http.Header{}
	h.Set("Origin", "http://blocked.test")
	_, resp, err := websocket.DefaultDialer.Dial(u, h)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClientTokenCookie(t *testing.T) {
	s := newStack(t)
	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionName {
			found = true
		}
	}
	assert.True(t, found)
}
