package ot

import "fmt"

// ackEntry pairs a locally generated, not-yet-acknowledged operation with
// the local counter it was sent at, so it can be told apart from an
// operation sent earlier even after some older entries have been discarded.
type ackEntry struct {
	count uint32
	op    Operation
}

// Jupiter is one side of a Jupiter pair: it reconciles a stream of locally
// generated operations against a stream of remotely generated ones so both
// sides converge on identical text without ever blocking on the network.
type Jupiter struct {
	time VectorTime
	// ack holds locally generated operations the peer has not yet
	// acknowledged, oldest first.
	ack []ackEntry
}

// NewJupiter returns a pair with both counters at zero.
func NewJupiter() *Jupiter {
	return &Jupiter{}
}

// Time reports the counters as they stand right now.
func (j *Jupiter) Time() VectorTime { return j.time }

// LocalOp records an operation generated at this site and returns the
// record to send to the peer.
func (j *Jupiter) LocalOp(op Operation) Record {
	rec := Record{Time: j.time, Op: op}
	j.ack = append(j.ack, ackEntry{count: j.time.Local, op: op})
	j.time = j.time.incLocal()
	return rec
}

// RemoteOp folds an operation received from the peer through every
// operation this site has generated but the peer had not yet seen when it
// sent rec, returning the operation in a form that can be applied directly
// to the local document. It fails with ErrJupiterProtocol if rec's vector
// time is inconsistent with what this pair has observed so far.
func (j *Jupiter) RemoteOp(rec Record) (Operation, error) {
	if rec.Time.Local != j.time.Remote {
		return nil, fmt.Errorf("%w: record assumes %d operations seen from this site, %d have been sent",
			ErrJupiterProtocol, rec.Time.Local, j.time.Remote)
	}
	if len(j.ack) > 0 && rec.Time.Remote < j.ack[0].count {
		return nil, fmt.Errorf("%w: record acknowledges %d operations, but %d is the oldest still outstanding",
			ErrJupiterProtocol, rec.Time.Remote, j.ack[0].count)
	}
	if rec.Time.Remote > j.time.Local {
		return nil, fmt.Errorf("%w: record acknowledges %d operations, only %d have ever been sent",
			ErrJupiterProtocol, rec.Time.Remote, j.time.Local)
	}

	discarded := 0
	for discarded < len(j.ack) && j.ack[discarded].count < rec.Time.Remote {
		discarded++
	}
	j.ack = j.ack[discarded:]

	op := rec.Op
	for i, pending := range j.ack {
		transformedOp := pending.op.Transform(op)
		transformedPending := op.Transform(pending.op)
		j.ack[i].op = transformedPending
		op = transformedOp
	}

	j.time = j.time.incRemote()
	return op, nil
}
