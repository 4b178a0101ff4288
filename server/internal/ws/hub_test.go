package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/api"
	"github.com/benchboard/benchboard/server/internal/store"
	wsHub "github.com/benchboard/benchboard/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func entry(id string, date int64, value float64) types.Entry {
	return types.Entry{
		Commit:  types.Commit{ID: id, Message: "m", URL: "u"},
		Date:    date,
		Tool:    "cargo",
		Benches: []types.Bench{{Name: "round_trip", Value: value, Unit: "ns/iter"}},
	}
}

func newStore(t *testing.T, entries ...types.Entry) *store.Store {
	t.Helper()
	st := store.New("https://github.com/o/r", 0)
	for _, e := range entries {
		if _, err := st.Append(context.Background(), "Rust", e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return st
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T, st *store.Store, interval time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, interval, func() api.SummaryResponse {
		return api.BuildSummary(st, nil, 1.5, 2)
	})
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// readEvent skips messages until one with the given event arrives.
func readEvent(t *testing.T, conn *websocket.Conn, event string) message {
	t.Helper()
	for i := 0; i < 100; i++ {
		if m := readMessage(t, conn); m.Event == event {
			return m
		}
	}
	t.Fatalf("no %q event received", event)
	return message{}
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSummary(t *testing.T) {
	st := newStore(t, entry("a1", 1000, 100), entry("b2", 2000, 300))
	wsURL, _, _ := startHub(t, st, time.Hour)

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventSummary {
		t.Fatalf("event: got %q, want summary", m.Event)
	}
	var s api.SummaryResponse
	if err := json.Unmarshal(m.Data, &s); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if s.Entries != 2 || len(s.Suites) != 1 || s.RepoURL != "https://github.com/o/r" {
		t.Errorf("summary: got %+v", s)
	}
	if s.Suites[0].State != "critical" {
		t.Errorf("suite state: got %q, want critical", s.Suites[0].State)
	}
	if s.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
}

func TestHub_AppendBroadcastsEntry(t *testing.T) {
	st := newStore(t, entry("a1", 1000, 100))
	wsURL, _, _ := startHub(t, st, time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate summary

	if _, err := st.Append(context.Background(), "Rust", entry("b2", 2000, 150)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	m := readEvent(t, conn, wsHub.EventEntry)
	var ev wsHub.EntryEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if ev.Suite != "Rust" || ev.Entry.Commit.ID != "b2" || ev.Baseline != "a1" {
		t.Errorf("entry event: got %+v", ev)
	}
	if len(ev.Changes) != 1 || ev.Changes[0].Ratio != 1.5 {
		t.Errorf("changes: got %+v", ev.Changes)
	}
}

func TestHub_ReceivesSummaryOnTick(t *testing.T) {
	st := newStore(t)
	wsURL, _, _ := startHub(t, st, testInterval)

	conn := dial(t, wsURL)
	first := readMessage(t, conn)
	if first.Event != wsHub.EventSummary {
		t.Fatalf("event: got %q", first.Event)
	}
	// A second summary arrives on the next tick.
	readEvent(t, conn, wsHub.EventSummary)
}

func TestHub_CountClients_MultipleClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(t), time.Hour)

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(t), time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_AllClientsReceiveEntry(t *testing.T) {
	st := newStore(t)
	wsURL, _, _ := startHub(t, st, time.Hour)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i])
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := st.Append(context.Background(), "Rust", entry("a1", 1000, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for _, conn := range conns {
		readEvent(t, conn, wsHub.EventEntry)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(t), time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	st := newStore(t)
	hub := wsHub.New(st, testInterval, func() api.SummaryResponse { return api.SummaryResponse{} })
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers returns 400.
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
