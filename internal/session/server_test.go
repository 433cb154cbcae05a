package session

import (
	"testing"

	"github.com/obbygo/obbygo/internal/ot"
)

func TestMultiplexerClientAddRemoveErrors(t *testing.T) {
	mux := NewMultiplexer(ot.NewText(0))
	if err := mux.ClientAdd(1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := mux.ClientAdd(1); err == nil {
		t.Fatalf("expected logic error adding an already-present client")
	}
	if err := mux.ClientRemove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mux.ClientRemove(1); err == nil {
		t.Fatalf("expected logic error removing an absent client")
	}
}

func TestMultiplexerBroadcastsWithOriginalAuthor(t *testing.T) {
	mux := NewMultiplexer(ot.NewTextFromString("doc", ot.NoAuthor, 0))
	_ = mux.ClientAdd(1)
	_ = mux.ClientAdd(2)

	aClient := NewClientEngine(ot.NewTextFromString("doc", ot.NoAuthor, 0), 1)
	rec := aClient.Submit(ot.Insert{Pos: 3, Text: "X"})

	if _, err := mux.RemoteOp(rec, 1); err != nil {
		t.Fatalf("remote op: %v", err)
	}

	ready := mux.Drain()
	if len(ready) != 1 {
		t.Fatalf("expected exactly 1 record for the other subscriber, got %d", len(ready))
	}
	if ready[0].Target != 2 || ready[0].Originator != 1 {
		t.Fatalf("unexpected target/originator: %+v", ready[0])
	}

	bClient := NewClientEngine(ot.NewTextFromString("doc", ot.NoAuthor, 0), 2)
	if _, err := bClient.Receive(ready[0].Record, ready[0].Originator); err != nil {
		t.Fatalf("B receive: %v", err)
	}
	for _, c := range bClient.Text().ChunkIter() {
		if c.Text == "X" && c.Author != 1 {
			t.Fatalf("expected relayed insert to carry author 1 (A), got %d", c.Author)
		}
	}
	if mux.Text().String() != bClient.Text().String() {
		t.Fatalf("server/B diverged: %q vs %q", mux.Text().String(), bClient.Text().String())
	}
}
