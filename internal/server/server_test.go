package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tablesync/tablesync/internal/server"
	"github.com/tablesync/tablesync/pkg/config"
	"github.com/tablesync/tablesync/pkg/logging"
	"github.com/tablesync/tablesync/pkg/protocol"
)

const seedYAML = `
users:
  - id: u1
    username: Alice
  - id: u2
    username: Bob
sessions:
  - id: tokA
    userId: u1
    expiresAt: 2099-01-01T00:00:00Z
  - id: tokB
    userId: u2
    expiresAt: 2099-01-01T00:00:00Z
scenes:
  - id: s1
    campaignId: g1
    name: Tavern
`

func newTestServer(t *testing.T, limit config.ConnectionLimitConfig) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, limit, 5*time.Second)
}

func newTestServerWith(t *testing.T, limit config.ConnectionLimitConfig, readTimeout time.Duration) *httptest.Server {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(seed, []byte(seedYAML), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cfg := &config.Config{
		Server:    config.ServerConfig{Address: "127.0.0.1:0", ConnectionLimit: limit},
		Transport: config.TransportConfig{ReadTimeout: readTimeout, SendQueue: 32},
		Auth:      config.AuthConfig{Mode: config.AuthModeMemory},
		Store:     config.StoreConfig{SeedFile: seed},
	}
	app, err := server.NewApp(context.Background(), logging.Discard(), cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, suffix string, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + suffix
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, typ protocol.Type, payload any) {
	t.Helper()
	frame, err := protocol.Marshal(typ, payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// waitFor reads until an envelope of typ arrives.
func waitFor(t *testing.T, conn *websocket.Conn, typ protocol.Type) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if env.Type == typ {
			return env
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, config.ConnectionLimitConfig{Mode: "reject"})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Rooms       int    `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Connections != 0 || body.Rooms != 0 {
		t.Errorf("unexpected health %+v", body)
	}
}

func TestSessionOverWebsocket(t *testing.T) {
	srv := newTestServer(t, config.ConnectionLimitConfig{Mode: "reject"})

	a := dial(t, srv, "", http.Header{"Authorization": {"Bearer tokA"}})
	welcome := waitFor(t, a, protocol.TypeCampaignState)
	var state map[string]string
	json.Unmarshal(welcome.Payload, &state)
	if state["clientId"] == "" {
		t.Errorf("welcome without clientId: %s", welcome.Payload)
	}

	// token taken from the handshake header
	writeEnvelope(t, a, protocol.TypeSessionJoin, map[string]string{"roomId": "g1"})
	waitFor(t, a, protocol.TypeSessionPlayers)

	b := dial(t, srv, "?token=tokB", nil)
	waitFor(t, b, protocol.TypeCampaignState)
	writeEnvelope(t, b, protocol.TypeSessionJoin, map[string]string{"roomId": "g1"})
	roster := waitFor(t, b, protocol.TypeSessionPlayers)
	var players struct {
		Players []struct {
			UserID string `json:"userId"`
		} `json:"players"`
	}
	json.Unmarshal(roster.Payload, &players)
	if len(players.Players) != 2 {
		t.Errorf("expected two players, got %s", roster.Payload)
	}

	joined := waitFor(t, a, protocol.TypeSessionPlayerJoined)
	if !strings.Contains(string(joined.Payload), `"u2"`) {
		t.Errorf("unexpected player-joined %s", joined.Payload)
	}

	b.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.Close()

	left := waitFor(t, a, protocol.TypeSessionPlayerLeft)
	var leftPayload map[string]string
	json.Unmarshal(left.Payload, &leftPayload)
	if leftPayload["userId"] != "u2" {
		t.Errorf("unexpected player-left %s", left.Payload)
	}
}

func TestJoinWithoutTokenIsUnauthorized(t *testing.T) {
	srv := newTestServer(t, config.ConnectionLimitConfig{Mode: "reject"})
	c := dial(t, srv, "", nil)
	waitFor(t, c, protocol.TypeCampaignState)

	writeEnvelope(t, c, protocol.TypeSessionJoin, map[string]string{"roomId": "g1"})
	env := waitFor(t, c, protocol.TypeError)
	var e protocol.ErrorPayload
	json.Unmarshal(env.Payload, &e)
	if e.Code != protocol.CodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %+v", e)
	}
}

func TestConnectionLimitRejects(t *testing.T) {
	srv := newTestServer(t, config.ConnectionLimitConfig{MaxPerIP: 1, Mode: "reject"})
	first := dial(t, srv, "", nil)
	waitFor(t, first, protocol.TypeCampaignState)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the second connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", resp)
	}
}

func TestQuietPlayerStaysInRoom(t *testing.T) {
	timeout := 100 * time.Millisecond
	srv := newTestServerWith(t, config.ConnectionLimitConfig{Mode: "reject"}, timeout)

	a := dial(t, srv, "?token=tokA", nil)
	waitFor(t, a, protocol.TypeCampaignState)
	writeEnvelope(t, a, protocol.TypeSessionJoin, map[string]string{"roomId": "g1"})
	waitFor(t, a, protocol.TypeSessionPlayers)

	// A only listens from here on; its pending read answers keepalive pings
	a.SetReadDeadline(time.Time{})
	types := make(chan protocol.Type, 16)
	go func() {
		defer close(types)
		for {
			var env protocol.Envelope
			if err := a.ReadJSON(&env); err != nil {
				return
			}
			types <- env.Type
		}
	}()

	time.Sleep(6 * timeout)

	b := dial(t, srv, "?token=tokB", nil)
	waitFor(t, b, protocol.TypeCampaignState)
	writeEnvelope(t, b, protocol.TypeSessionJoin, map[string]string{"roomId": "g1"})
	roster := waitFor(t, b, protocol.TypeSessionPlayers)
	var players struct {
		Players []struct {
			UserID string `json:"userId"`
		} `json:"players"`
	}
	json.Unmarshal(roster.Payload, &players)
	if len(players.Players) != 2 {
		t.Fatalf("quiet player dropped out of the room, roster %s", roster.Payload)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case typ, ok := <-types:
			if !ok {
				t.Fatal("quiet player's socket was closed")
			}
			if typ == protocol.TypeSessionPlayerLeft {
				t.Fatal("quiet player was announced as left")
			}
			if typ == protocol.TypeSessionPlayerJoined {
				return
			}
		case <-deadline:
			t.Fatal("quiet player never saw the new joiner")
		}
	}
}
