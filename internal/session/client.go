// Package session implements the per-document Jupiter bookkeeping on both
// sides of a connection: a client's single pair toward the server, the
// server's one-pair-per-subscriber multiplexer, and the subscription state
// machine that keeps a newly joined client's pair in step with records
// generated while it was still being synced.
package session

import (
	"errors"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

// ErrNotImplemented is returned by ClientEngine.Undo: the original library
// never implemented undo either (its undo module unconditionally panics),
// so this spec inherits the same gap rather than inventing behaviour.
var ErrNotImplemented = errors.New("session: undo is not implemented")

// ClientEngine is the client side of one Jupiter pair for a single
// document: it owns the local text and the pair's vector-time bookkeeping.
type ClientEngine struct {
	jup  *ot.Jupiter
	doc  *ot.Text
	self model.UserID
}

// NewClientEngine creates a client engine over an already-synced document,
// with a fresh Jupiter pair at time (0, 0).
func NewClientEngine(doc *ot.Text, self model.UserID) *ClientEngine {
	return &ClientEngine{jup: ot.NewJupiter(), doc: doc, self: self}
}

// Text returns the live document this engine keeps in sync.
func (c *ClientEngine) Text() *ot.Text { return c.doc }

// Submit applies a locally generated operation and returns the record to
// send to the server.
func (c *ClientEngine) Submit(op ot.Operation) ot.Record {
	op.Apply(c.doc, c.self)
	return c.jup.LocalOp(op)
}

// Receive folds a record from the server through this pair and applies the
// result, returning the operation actually applied (already transformed,
// ready to replay in a UI).
func (c *ClientEngine) Receive(rec ot.Record, author model.UserID) (ot.Operation, error) {
	op, err := c.jup.RemoteOp(rec)
	if err != nil {
		return nil, err
	}
	op.Apply(c.doc, author)
	return op, nil
}

// Undo is not implemented, matching the original library's stubbed undo
// module.
func (c *ClientEngine) Undo() error {
	return ErrNotImplemented
}
