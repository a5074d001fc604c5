// Package hub fans lifecycle events out to connected listeners.
// The service layer publishes an Event after every committed change (a match was created,
// somebody joined, the fourth slot filled, a result was confirmed) and the hub pushes it
// to every client subscribed to that match, plus every client watching all matches.
// Clients are the server-sent-event streams opened on GET /api/v1/events.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	// uuid gives every client and every event a unique identifier; SSE clients use the
	// event id as Last-Event-ID when they reconnect.
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event types published by the service layer.
const (
	MatchCreated    = "match.created"
	MatchJoined     = "match.joined"
	MatchComplete   = "match.complete" // The fourth slot was filled; the match can be played
	MatchEdited     = "match.edited"
	ResultConfirmed = "result.confirmed"
	PlayerSaved     = "player.saved"
)

// AllMatches is the topic of clients that want every event.
const AllMatches = ""

// Event is something that happened to a match or player.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	MatchID int       `json:"match_id,omitempty"` // 0 for events not tied to a match
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

// Topic returns the subscription key the event is routed by.
func (e Event) Topic() string {
	if e.MatchID == 0 {
		return AllMatches
	}
	return MatchTopic(e.MatchID)
}

// MatchTopic is the topic of clients following a single match.
func MatchTopic(id int) string {
	return fmt.Sprintf("match:%d", id)
}

// Message is an encoded event ready to be written to a client.
type Message struct {
	ID    string
	Type  string
	Topic string
	Data  []byte // JSON-encoded Event
}

// Client is one listener. The hub writes to Send and closes it when the client is
// removed, so the reader just ranges over it.
type Client struct {
	ID    uuid.UUID
	Topic string
	Send  chan Message
}

// NewClient returns a client for topic with a small outgoing buffer.
func NewClient(topic string) *Client {
	return &Client{ID: uuid.New(), Topic: topic, Send: make(chan Message, 16)}
}

// Hub tracks clients by topic. All map writes happen on the Run goroutine; the
// mutex only exists so Clients can be read from elsewhere.
type Hub struct {
	clients map[string]map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns

	mu  sync.RWMutex
	log *logrus.Entry
}

// New creates a hub. Nothing is delivered until Run is started.
// The broadcast buffer lets publishers continue while the loop is busy.
func New() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logrus.WithField("component", "hub"),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing every
// client's Send channel on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.Topic] == nil {
				h.clients[c.Topic] = make(map[*Client]bool)
			}
			h.clients[c.Topic][c] = true
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"client": c.ID, "topic": c.Topic}).Debug("client registered")

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver sends msg to the clients of its topic and to the AllMatches clients.
// A client whose buffer is full is dropped rather than stalling everyone else.
func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	var targets []*Client
	for c := range h.clients[msg.Topic] {
		targets = append(targets, c)
	}
	if msg.Topic != AllMatches {
		for c := range h.clients[AllMatches] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Send <- msg:
		default:
			h.log.WithField("client", c.ID).Warn("client too slow, dropping")
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Topic]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.Topic)
	}
}

// Publish encodes ev and queues it for delivery. It never blocks: if the hub
// is stopped or its queue is full the event is dropped and logged.
func (h *Hub) Publish(ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("type", ev.Type).Error("encode event")
		return
	}

	msg := Message{ID: ev.ID.String(), Type: ev.Type, Topic: ev.Topic(), Data: data}
	select {
	case <-h.done:
	case h.broadcast <- msg:
		return
	default:
	}
	h.log.WithFields(logrus.Fields{"type": ev.Type, "match": ev.MatchID}).Warn("event dropped")
}

// Register adds a client. It reports false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its Send channel. Safe to call after
// the hub stopped or for a client that was already dropped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns how many clients follow topic.
func (h *Hub) Clients(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
