// Package roomstest provides an in-memory rooms.Conn for tests.
package roomstest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tablesync/tablesync/pkg/protocol"
)

var ErrSendFailed = errors.New("roomstest: send failed")

// Conn records every message sent to it.
type Conn struct {
	id uuid.UUID

	mu       sync.Mutex
	open     bool
	failSend bool
	sent     [][]byte
}

func NewConn() *Conn {
	return &Conn{id: uuid.New(), open: true}
}

func (c *Conn) ID() uuid.UUID { return c.id }

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Conn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return ErrSendFailed
	}
	c.sent = append(c.sent, append([]byte(nil), msg...))
	return nil
}

// SetOpen toggles whether the connection accepts sends.
func (c *Conn) SetOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

// FailSends makes every subsequent Send return ErrSendFailed.
func (c *Conn) FailSends() {
	c.mu.Lock()
	c.failSend = true
	c.mu.Unlock()
}

// Envelopes decodes everything sent so far.
func (c *Conn) Envelopes() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	envs := make([]protocol.Envelope, 0, len(c.sent))
	for _, raw := range c.sent {
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		envs = append(envs, env)
	}
	return envs
}

// Types lists the envelope types received, in order.
func (c *Conn) Types() []protocol.Type {
	envs := c.Envelopes()
	types := make([]protocol.Type, len(envs))
	for i, env := range envs {
		types[i] = env.Type
	}
	return types
}

// Last returns the most recent envelope of the given type.
func (c *Conn) Last(typ protocol.Type) (protocol.Envelope, bool) {
	envs := c.Envelopes()
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == typ {
			return envs[i], true
		}
	}
	return protocol.Envelope{}, false
}

// Count returns how many envelopes of the given type were received.
func (c *Conn) Count(typ protocol.Type) int {
	n := 0
	for _, t := range c.Types() {
		if t == typ {
			n++
		}
	}
	return n
}

// Reset forgets recorded messages.
func (c *Conn) Reset() {
	c.mu.Lock()
	c.sent = nil
	c.mu.Unlock()
}
