// Package transport drives the WebSocket connection loop: it turns inbound
// frames into internal/buffer dispatch calls and fans the resulting
// Outbound messages back out to every affected connection.
package transport

import (
	"sync"

	"github.com/obbygo/obbygo/internal/buffer"
	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
	"github.com/obbygo/obbygo/pkg/logger"
	"github.com/obbygo/obbygo/pkg/metrics"
	"github.com/obbygo/obbygo/pkg/persist"
)

// outboxBuffer bounds how many pending server messages a slow connection
// may accumulate before new ones are dropped.
const outboxBuffer = 64

// Hub is the process-wide shared state every Conn dispatches against: one
// authoritative Buffer, the server's RSA identity, and a registry of
// per-connection outboxes used to deliver messages targeting another
// connection (broadcasts, relayed records) without that connection polling.
type Hub struct {
	mu             sync.Mutex
	Buf            *buffer.Buffer
	Identity       *buffer.ServerIdentity
	GlobalPassword string
	outboxes       map[model.UserID]chan protocol.ServerMsg

	// Metrics, if set, is updated as connections log in and out. Left nil
	// by NewHub; callers that want metrics assign it before serving any
	// connection.
	Metrics *metrics.Metrics
}

// NewHub creates an authoritative hub with a fresh RSA identity.
// globalPassword, if non-empty, gates every login.
func NewHub(globalPassword string) (*Hub, error) {
	identity, err := buffer.NewServerIdentity()
	if err != nil {
		return nil, err
	}
	return &Hub{
		Buf:            buffer.NewServerBuffer(),
		Identity:       identity,
		GlobalPassword: globalPassword,
		outboxes:       make(map[model.UserID]chan protocol.ServerMsg),
	}, nil
}

// LoadSnapshot repopulates the hub's buffer from a previously saved
// session. Call it before serving any connection.
func (h *Hub) LoadSnapshot(s persist.Session) {
	h.Buf.LoadSnapshot(s)
}

// Snapshot captures the hub's current state for persistence.
func (h *Hub) Snapshot() persist.Session {
	return h.Buf.Snapshot()
}

func (h *Hub) register(user model.UserID) <-chan protocol.ServerMsg {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan protocol.ServerMsg, outboxBuffer)
	h.outboxes[user] = ch
	if h.Metrics != nil {
		h.Metrics.ConnectedUsers.Set(float64(len(h.outboxes)))
	}
	return ch
}

func (h *Hub) unregister(user model.UserID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.outboxes[user]; ok {
		close(ch)
		delete(h.outboxes, user)
		if h.Metrics != nil {
			h.Metrics.ConnectedUsers.Set(float64(len(h.outboxes)))
		}
	}
}

// deliver fans out every Outbound to its targeted connections' outboxes. A
// full outbox drops the message rather than blocking the dispatching
// connection.
func (h *Hub) deliver(from model.UserID, out []buffer.Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range out {
		targets := o.To
		if o.Broadcast {
			targets = nil
			for u := range h.outboxes {
				if u == from {
					continue
				}
				targets = append(targets, u)
			}
		}
		for _, u := range targets {
			ch, ok := h.outboxes[u]
			if !ok {
				continue
			}
			select {
			case ch <- o.Msg:
			default:
				logger.Error("transport: dropping message to user %d, outbox full", u)
			}
		}
	}
}
