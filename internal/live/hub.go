// Package live pushes meeting change notifications to open websocket
// connections. Each connection follows exactly one meeting.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event tells subscribers that something in a meeting changed. Clients react
// by re-fetching; events carry no balances.
type Event struct {
	Type      string `json:"type"`
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	MeetingID int64  `json:"meeting_id"`
	ID        int64  `json:"id,omitempty"`
}

// NewEvent creates an Event with Type derived from entity and action.
func NewEvent(meetingID int64, entity, action string, id int64) Event {
	return Event{
		Type:      fmt.Sprintf("%s_%s", entity, action),
		Entity:    entity,
		Action:    action,
		MeetingID: meetingID,
		ID:        id,
	}
}

// Hub maintains the subscribers of each meeting.
type Hub struct {
	mu       sync.RWMutex
	meetings map[int64]map[*Client]struct{}
	logger   *slog.Logger

	// OnCountChange, if set, is called with the total subscriber count after
	// every register and unregister.
	OnCountChange func(total int)
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		meetings: make(map[int64]map[*Client]struct{}),
		logger:   logger,
	}
}

// Register adds a client to its meeting.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	subs, ok := h.meetings[c.meetingID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.meetings[c.meetingID] = subs
	}
	subs[c] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()

	h.notify(total)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	subs := h.meetings[c.meetingID]
	if _, ok := subs[c]; ok {
		delete(subs, c)
		close(c.send)
		if len(subs) == 0 {
			delete(h.meetings, c.meetingID)
		}
	}
	total := h.countLocked()
	h.mu.Unlock()

	h.notify(total)
}

// Publish sends ev to every subscriber of ev.MeetingID. Subscribers of other
// meetings never see it.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal live event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.meetings[ev.MeetingID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full; drop rather than block the publisher
			h.logger.Debug("live event dropped", "meeting_id", ev.MeetingID, "type", ev.Type)
		}
	}
}

// Subscribers returns the number of clients following meetingID.
func (h *Hub) Subscribers(meetingID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meetings[meetingID])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	n := 0
	for _, subs := range h.meetings {
		n += len(subs)
	}
	return n
}

func (h *Hub) notify(total int) {
	if h.OnCountChange != nil {
		h.OnCountChange(total)
	}
}
