package session

import (
	"fmt"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

// SubState is one subscriber's position in the per-document state machine:
// Unsubscribed -> Subscribing -> Subscribed -> Unsubscribing -> Unsubscribed.
// Server transitions are atomic (Subscribing/Unsubscribing never observed
// externally); a client models the intermediate states while it awaits
// acknowledgement and must not submit local edits during them.
type SubState int

const (
	Unsubscribed SubState = iota
	Subscribing
	Subscribed
	Unsubscribing
)

// frozenOp is an operation captured for a subscriber still mid-sync,
// together with whoever originally authored it, so replay can still report
// the true author rather than attributing it to the replay itself.
type frozenOp struct {
	op     ot.Operation
	author model.UserID
}

// DocSession wraps a Multiplexer with the subscription state machine: a
// subscriber joining mid-edit gets every operation applied during its
// chunked initial sync queued up, then replayed once sync completes, so
// its freshly constructed Jupiter pair never misses a beat.
type DocSession struct {
	mux    *Multiplexer
	states map[model.UserID]SubState
	frozen map[model.UserID][]frozenOp
}

// NewDocSession wraps mux with an empty subscriber set.
func NewDocSession(mux *Multiplexer) *DocSession {
	return &DocSession{
		mux:    mux,
		states: make(map[model.UserID]SubState),
		frozen: make(map[model.UserID][]frozenOp),
	}
}

func (d *DocSession) State(user model.UserID) SubState {
	return d.states[user]
}

// BeginSubscribe starts the chunked content push to user: from this point
// every operation applied to the document is queued for user instead of
// being lost, until FinishSubscribe is called.
func (d *DocSession) BeginSubscribe(user model.UserID) error {
	if d.states[user] != Unsubscribed {
		return fmt.Errorf("session: user %d is not unsubscribed", user)
	}
	d.states[user] = Subscribing
	d.frozen[user] = nil
	return nil
}

// FinishSubscribe ends the chunked push: it gives user a fresh Jupiter
// pair at vector time (0, 0), per the subscription invariant, then
// replays every operation that was applied while user was frozen, in
// order, as freshly generated records targeting user alone.
func (d *DocSession) FinishSubscribe(user model.UserID) ([]RecordReady, error) {
	if d.states[user] != Subscribing {
		return nil, fmt.Errorf("session: user %d is not mid-subscribe", user)
	}
	if err := d.mux.ClientAdd(user); err != nil {
		return nil, err
	}
	pair := d.mux.pairs[user]

	queued := d.frozen[user]
	delete(d.frozen, user)
	d.states[user] = Subscribed

	out := make([]RecordReady, 0, len(queued))
	for _, f := range queued {
		rec := pair.LocalOp(f.op)
		out = append(out, RecordReady{Target: user, Originator: f.author, Record: rec})
	}
	return out, nil
}

// BeginUnsubscribe and FinishUnsubscribe bracket the (atomic, on the
// server) teardown of a subscriber's pair.
func (d *DocSession) BeginUnsubscribe(user model.UserID) error {
	if d.states[user] != Subscribed {
		return fmt.Errorf("session: user %d is not subscribed", user)
	}
	d.states[user] = Unsubscribing
	return nil
}

func (d *DocSession) FinishUnsubscribe(user model.UserID) error {
	if d.states[user] != Unsubscribing {
		return fmt.Errorf("session: user %d is not unsubscribing", user)
	}
	if err := d.mux.ClientRemove(user); err != nil {
		return err
	}
	d.states[user] = Unsubscribed
	return nil
}

// LocalOp applies a server/host-originated operation, relaying it to every
// Subscribed client as usual and queuing it for every client still
// Subscribing.
func (d *DocSession) LocalOp(op ot.Operation, from model.UserID) []RecordReady {
	applied := d.mux.LocalOp(op, from)
	d.queueForFrozen(applied, from)
	return d.mux.Drain()
}

// RemoteOp folds a record from a subscribed client, relaying the result to
// every other Subscribed client and queuing it for every client still
// Subscribing.
func (d *DocSession) RemoteOp(rec ot.Record, from model.UserID) ([]RecordReady, error) {
	applied, err := d.mux.RemoteOp(rec, from)
	if err != nil {
		return nil, err
	}
	d.queueForFrozen(applied, from)
	return d.mux.Drain(), nil
}

func (d *DocSession) queueForFrozen(op ot.Operation, author model.UserID) {
	for user, state := range d.states {
		if state == Subscribing {
			d.frozen[user] = append(d.frozen[user], frozenOp{op: op.Clone(), author: author})
		}
	}
}
