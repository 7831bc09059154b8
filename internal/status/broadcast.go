package status

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/dispatch"
	"github.com/streamvr/server/internal/host"
)

// maxPendingCalls bounds the calls held between flushes; older calls are
// discarded first. Clients still converge through the status in each delta.
const maxPendingCalls = 256

var ErrTooManyConnections = errors.New("too many websocket connections")

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster is a host.Sink that keeps a Store current and pushes call
// deltas and periodic snapshots to websocket clients.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int

	store    *Store
	throttle time.Duration
	sampler  *processSampler
	stats    func() dispatch.Stats

	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once

	flushMu    sync.Mutex
	pending    []host.Call
	flushTimer *time.Timer
}

// NewBroadcaster starts the periodic snapshot loop. maxConns of zero means
// unlimited clients.
func NewBroadcaster(store *Store, throttle, snapshotInterval time.Duration, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		maxConns:       maxConns,
		store:          store,
		throttle:       throttle,
		sampler:        newProcessSampler(),
		snapshotTicker: time.NewTicker(snapshotInterval),
		stop:           make(chan struct{}),
	}
	go b.snapshotLoop()
	return b
}

// SetDispatchStats attaches the dispatch loop counters to snapshots. Must
// be called before clients connect.
func (b *Broadcaster) SetDispatchStats(fn func() dispatch.Stats) {
	b.stats = fn
}

// Snapshot returns the full status including process and loop stats.
func (b *Broadcaster) Snapshot() Snapshot {
	snap := b.store.Snapshot()
	if b.stats != nil {
		st := b.stats()
		snap.Dispatch = &st
	}
	snap.Process = b.sampler.sample()
	return snap
}

// Record implements host.Sink. It never blocks on clients.
func (b *Broadcaster) Record(c host.Call) {
	b.store.Apply(c)

	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pending = append(b.pending, c)
	if over := len(b.pending) - maxPendingCalls; over > 0 {
		b.pending = b.pending[over:]
	}
	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	// The buffer is empty, so the initial snapshot always fits.
	if data, err := json.Marshal(WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Status: b.Snapshot()}}); err == nil {
		c.send <- data
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	calls := b.pending
	b.pending = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(calls) == 0 {
		return
	}
	b.broadcast(WSMessage{
		Type:    MsgDelta,
		Payload: DeltaPayload{Calls: calls, Status: b.store.Snapshot()},
	})
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Status: b.Snapshot()}})
		}
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Status marshal failed")
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		log.Warn().Msg("Status client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

// Stop ends the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.snapshotTicker.Stop()

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}
