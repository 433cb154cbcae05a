package session

import (
	"fmt"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

// RecordReady is the signal a Multiplexer emits once per target client for
// every operation it processes: target is the subscriber the record should
// be sent to, originator is whoever actually authored the underlying edit
// (which may differ from whoever's pair produced this particular record).
type RecordReady struct {
	Target     model.UserID
	Originator model.UserID
	Record     ot.Record
}

// Multiplexer is the server side of a single document: one Jupiter pair
// per subscribed client, fed from one shared text. It never touches a
// transport directly; callers drain records via Drain after each call.
type Multiplexer struct {
	doc     *ot.Text
	pairs   map[model.UserID]*ot.Jupiter
	pending []RecordReady
}

// NewMultiplexer creates a multiplexer over the server's authoritative
// copy of a document's text, with no subscribers yet.
func NewMultiplexer(doc *ot.Text) *Multiplexer {
	return &Multiplexer{doc: doc, pairs: make(map[model.UserID]*ot.Jupiter)}
}

// Text returns the server's authoritative copy of the document.
func (m *Multiplexer) Text() *ot.Text { return m.doc }

// ClientAdd inserts a fresh pair for user, at vector time (0, 0). Adding an
// already-present user is a logic error: the caller asked to subscribe
// someone who's already subscribed.
func (m *Multiplexer) ClientAdd(user model.UserID) error {
	if _, ok := m.pairs[user]; ok {
		return fmt.Errorf("session: client %d already has a pair", user)
	}
	m.pairs[user] = ot.NewJupiter()
	return nil
}

// ClientRemove drops user's pair. Removing an unknown client is a logic
// error: there was nothing to unsubscribe.
func (m *Multiplexer) ClientRemove(user model.UserID) error {
	if _, ok := m.pairs[user]; !ok {
		return fmt.Errorf("session: client %d has no pair", user)
	}
	delete(m.pairs, user)
	return nil
}

// Subscribed reports whether user currently has a pair.
func (m *Multiplexer) Subscribed(user model.UserID) bool {
	_, ok := m.pairs[user]
	return ok
}

// LocalOp applies an operation generated by the server itself (from is
// OwnerNone, or a local host user), queues one record per subscriber, and
// returns the operation as applied (for callers, such as DocSession, that
// also need to replay it to subscribers frozen mid-sync).
func (m *Multiplexer) LocalOp(op ot.Operation, from model.UserID) ot.Operation {
	op.Apply(m.doc, from)
	for user, pair := range m.pairs {
		rec := pair.LocalOp(op.Clone())
		m.pending = append(m.pending, RecordReady{Target: user, Originator: from, Record: rec})
	}
	return op
}

// RemoteOp folds a record received from "from" through that user's pair,
// applies the result to the shared document, and re-broadcasts a freshly
// generated record — carrying from's identity as Originator — to every
// other subscriber. It returns the transformed operation as applied.
func (m *Multiplexer) RemoteOp(rec ot.Record, from model.UserID) (ot.Operation, error) {
	pair, ok := m.pairs[from]
	if !ok {
		return nil, fmt.Errorf("session: remote op from unsubscribed client %d", from)
	}
	op, err := pair.RemoteOp(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: from client %d", err, from)
	}
	op.Apply(m.doc, from)

	for user, other := range m.pairs {
		if user == from {
			continue
		}
		out := other.LocalOp(op.Clone())
		m.pending = append(m.pending, RecordReady{Target: user, Originator: from, Record: out})
	}
	return op, nil
}

// Drain returns and clears every record queued by LocalOp/RemoteOp calls
// since the last Drain.
func (m *Multiplexer) Drain() []RecordReady {
	out := m.pending
	m.pending = nil
	return out
}
