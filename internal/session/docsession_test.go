package session

import (
	"testing"

	"github.com/obbygo/obbygo/internal/ot"
)

func TestSubscriptionOrderingGuarantee(t *testing.T) {
	// Client Y is already subscribed and editing while X begins
	// subscribing; X's sync must end up converged with the server despite
	// the edits that land mid-sync.
	serverDoc := ot.NewTextFromString("start", ot.NoAuthor, 0)
	mux := NewMultiplexer(serverDoc)
	ds := NewDocSession(mux)

	const userY = 1
	const userX = 2

	if err := ds.BeginSubscribe(userY); err != nil {
		t.Fatalf("begin subscribe Y: %v", err)
	}
	if _, err := ds.FinishSubscribe(userY); err != nil {
		t.Fatalf("finish subscribe Y: %v", err)
	}

	yClient := NewClientEngine(ot.NewTextFromString("start", ot.NoAuthor, 0), userY)

	if err := ds.BeginSubscribe(userX); err != nil {
		t.Fatalf("begin subscribe X: %v", err)
	}

	// X's document snapshot, taken at BeginSubscribe time, before Y's
	// concurrent edit below lands.
	xDoc := serverDoc.Clone()

	// Y edits while X is still mid-sync.
	rec := yClient.Submit(ot.Insert{Pos: 5, Text: "!"})
	ready, err := ds.RemoteOp(rec, userY)
	if err != nil {
		t.Fatalf("remote op from Y: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("expected no records yet (X not subscribed, Y is the only other subscriber): %+v", ready)
	}

	queued, err := ds.FinishSubscribe(userX)
	if err != nil {
		t.Fatalf("finish subscribe X: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued record replaying Y's mid-sync edit, got %d", len(queued))
	}

	xClient := NewClientEngine(xDoc, userX)
	if _, err := xClient.Receive(queued[0].Record, userY); err != nil {
		t.Fatalf("X applies queued record: %v", err)
	}

	if xClient.Text().String() != serverDoc.String() {
		t.Fatalf("X diverged from server: X=%q server=%q", xClient.Text().String(), serverDoc.String())
	}
}

func TestSubscriptionInvariantFreshPairAtZero(t *testing.T) {
	serverDoc := ot.NewTextFromString("x", ot.NoAuthor, 0)
	mux := NewMultiplexer(serverDoc)
	ds := NewDocSession(mux)

	if mux.Subscribed(1) {
		t.Fatalf("user should not have a pair before subscribing")
	}
	if err := ds.BeginSubscribe(1); err != nil {
		t.Fatalf("begin subscribe: %v", err)
	}
	if mux.Subscribed(1) {
		t.Fatalf("user must not have a pair until sync_final (FinishSubscribe)")
	}
	if _, err := ds.FinishSubscribe(1); err != nil {
		t.Fatalf("finish subscribe: %v", err)
	}
	if !mux.Subscribed(1) {
		t.Fatalf("user should have a pair after FinishSubscribe")
	}
}
