package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamvr/server/internal/dispatch"
	"github.com/streamvr/server/internal/host"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and returns
// the server-side connection. The caller must close the server.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	_ = clientConn.Close()

	select {
	case serverConn := <-connCh:
		return srv, serverConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil
	}
}

func TestAddClientMaxConnections(t *testing.T) {
	const maxConns = 2
	b := NewBroadcaster(NewStore("r"), 100*time.Millisecond, time.Hour, maxConns)
	defer b.Stop()

	var clients []*client
	for i := 0; i < maxConns; i++ {
		srv, conn := dialTestWS(t)
		defer srv.Close()
		c, err := b.AddClient(conn)
		if err != nil {
			t.Fatalf("AddClient[%d]: %v", i, err)
		}
		clients = append(clients, c)
	}

	srv, conn := dialTestWS(t)
	defer srv.Close()
	if _, err := b.AddClient(conn); !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("expected ErrTooManyConnections, got %v", err)
	}
	conn.Close()

	b.RemoveClient(clients[0])
	srv2, conn2 := dialTestWS(t)
	defer srv2.Close()
	if _, err := b.AddClient(conn2); err != nil {
		t.Fatalf("AddClient after removal: %v", err)
	}
	if got := b.ClientCount(); got != maxConns {
		t.Errorf("ClientCount = %d, want %d", got, maxConns)
	}
}

func TestRecordQueuesBoundedDelta(t *testing.T) {
	b := NewBroadcaster(NewStore("r"), time.Hour, time.Hour, 0)
	defer b.Stop()

	for i := 0; i < maxPendingCalls+10; i++ {
		b.Record(host.Call{Kind: host.CallRequestIDR})
	}

	b.flushMu.Lock()
	n := len(b.pending)
	b.flushMu.Unlock()
	if n != maxPendingCalls {
		t.Errorf("pending = %d, want %d", n, maxPendingCalls)
	}
	if got := b.store.Snapshot().IDRs; got != maxPendingCalls+10 {
		t.Errorf("store IDRs = %d, want every call applied", got)
	}
}

func TestSnapshotIncludesStats(t *testing.T) {
	b := NewBroadcaster(NewStore("r"), time.Hour, time.Hour, 0)
	defer b.Stop()
	b.SetDispatchStats(func() dispatch.Stats { return dispatch.Stats{Events: 12, Resyncs: 1} })

	snap := b.Snapshot()
	if snap.Dispatch == nil || snap.Dispatch.Events != 12 {
		t.Errorf("Dispatch = %+v", snap.Dispatch)
	}
	if snap.Process == nil || snap.Process.PID == 0 {
		t.Errorf("Process = %+v", snap.Process)
	}
}

func TestStatusFeedOverWebsocket(t *testing.T) {
	b := NewBroadcaster(NewStore("run-ws"), 50*time.Millisecond, time.Hour, 0)
	defer b.Stop()
	srv := httptest.NewServer(NewServer(testServerConfig(""), b, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	first := readEnvelope(t, conn)
	if first.Type != MsgSnapshot {
		t.Fatalf("first message = %s, want snapshot", first.Type)
	}
	var snap SnapshotPayload
	if err := json.Unmarshal(first.Payload, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status.RunID != "run-ws" {
		t.Errorf("RunID = %q", snap.Status.RunID)
	}

	b.Record(host.Call{Kind: host.CallInitializeStreaming})
	b.Record(host.Call{Kind: host.CallSetBattery, Battery: &host.BatteryState{DeviceID: 4, Gauge: 0.3}})

	delta := readEnvelope(t, conn)
	if delta.Type != MsgDelta {
		t.Fatalf("second message = %s, want delta", delta.Type)
	}
	var d DeltaPayload
	if err := json.Unmarshal(delta.Payload, &d); err != nil {
		t.Fatal(err)
	}
	if len(d.Calls) != 2 || d.Calls[1].Battery == nil || d.Calls[1].Battery.Gauge != 0.3 {
		t.Errorf("delta calls = %+v", d.Calls)
	}
	if !d.Status.Streaming {
		t.Error("delta status should reflect streaming")
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWritePumpRemovesClientOnWriteError(t *testing.T) {
	srv, serverConn := dialTestWS(t)
	defer srv.Close()

	b := NewBroadcaster(NewStore("r"), time.Hour, time.Hour, 0)
	defer b.Stop()

	c := &client{conn: serverConn, b: b, send: make(chan []byte, 64)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	serverConn.Close()
	c.send <- []byte(`{"type":"test"}`)
	go c.writePump()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client not removed after write error; ClientCount = %d", b.ClientCount())
}
