// Package observe exposes the current run to local operator clients: a JSON
// state endpoint plus a WebSocket feed of classified events. It is a viewing
// aid only; webhook delivery never depends on it.
package observe

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linkrelay/loginwatch/internal/classifier"
	"github.com/linkrelay/loginwatch/internal/run"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans run-state updates and events out to connected WebSocket
// clients. State updates are throttled and coalesced (only the latest
// snapshot within the throttle window is sent); events and the outcome are
// broadcast immediately.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool

	store    *run.Store
	throttle time.Duration

	flushMu      sync.Mutex
	pendingState *run.State
	flushTimer   *time.Timer
}

func NewBroadcaster(store *run.Store, throttle time.Duration) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		throttle: throttle,
	}
}

// AddClient registers conn and immediately sends it the current state.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	snapshot := Message{
		Type:    MsgState,
		Payload: StatePayload{State: b.store.Snapshot()},
	}
	data, _ := json.Marshal(snapshot)

	select {
	case c.send <- data:
	default:
		// Client too slow for even the greeting; drop the snapshot.
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// QueueState schedules a throttled state broadcast. Safe to call from the
// store's notify hook: it never calls back into the store.
func (b *Broadcaster) QueueState(st run.State) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingState = &st

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flushState)
	}
}

func (b *Broadcaster) flushState() {
	b.flushMu.Lock()
	st := b.pendingState
	b.pendingState = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if st == nil {
		return
	}
	b.broadcast(Message{Type: MsgState, Payload: StatePayload{State: *st}})
}

// BroadcastEvent sends a classified event to all clients without throttling.
func (b *Broadcaster) BroadcastEvent(ev classifier.Event) {
	b.broadcast(Message{
		Type:    MsgEvent,
		Payload: EventPayload{Event: ev, Timestamp: time.Now()},
	})
}

// BroadcastOutcome announces the terminal verdict.
func (b *Broadcaster) BroadcastOutcome(outcome run.Outcome, exitCode int) {
	b.broadcast(Message{
		Type:    MsgOutcome,
		Payload: OutcomePayload{Outcome: outcome, ExitCode: exitCode},
	})
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[observe] broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it.
			log.Printf("[observe] client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
