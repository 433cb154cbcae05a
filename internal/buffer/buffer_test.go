package buffer

import (
	"testing"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
)

func red() model.Colour   { return model.Colour{Red: 220, Green: 20, Blue: 20} }
func green() model.Colour { return model.Colour{Red: 20, Green: 220, Blue: 20} }

func TestLoginRejectsColourCollision(t *testing.T) {
	b := NewServerBuffer()
	if _, err := b.Login("tok", "", protocol.LoginMsg{Name: "alice", Colour: red()}); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := b.Login("tok", "", protocol.LoginMsg{Name: "bob", Colour: red()}); err == nil {
		t.Fatalf("expected colour-collision login error")
	} else if err.Kind != protocol.LoginErrorColourInUse {
		t.Fatalf("expected COLOUR_IN_USE, got %s", err.Kind)
	}
}

func TestLoginRejectsNameInUseWhileConnected(t *testing.T) {
	b := NewServerBuffer()
	if _, err := b.Login("tok", "", protocol.LoginMsg{Name: "alice", Colour: red()}); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := b.Login("tok", "", protocol.LoginMsg{Name: "alice", Colour: green()}); err == nil {
		t.Fatalf("expected name-in-use login error")
	} else if err.Kind != protocol.LoginErrorNameInUse {
		t.Fatalf("expected NAME_IN_USE, got %s", err.Kind)
	}
}

func TestLoginGlobalPasswordMismatch(t *testing.T) {
	b := NewServerBuffer()
	const token = "tok"
	if _, err := b.Login(token, "secret", protocol.LoginMsg{
		Name: "alice", Colour: red(), GlobalPasswordHash: "wrong",
	}); err == nil {
		t.Fatalf("expected wrong-global-password error")
	} else if err.Kind != protocol.LoginErrorWrongGlobalPassword {
		t.Fatalf("expected WRONG_GLOBAL_PASSWORD, got %s", err.Kind)
	}

	if _, err := b.Login(token, "secret", protocol.LoginMsg{
		Name: "alice", Colour: red(), GlobalPasswordHash: HashPassword(token, "secret"),
	}); err != nil {
		t.Fatalf("expected login to succeed with the correct hash: %v", err)
	}
}

func TestReconnectPreservesIdentity(t *testing.T) {
	b := NewServerBuffer()
	user, err := b.Login("tok1", "", protocol.LoginMsg{Name: "alice", Colour: red()})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	b.Users.RemoveUser(user.ID)

	reconnected, err := b.Login("tok2", "", protocol.LoginMsg{Name: "alice", Colour: green()})
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if reconnected.ID != user.ID {
		t.Fatalf("expected reconnect to keep id %d, got %d", user.ID, reconnected.ID)
	}
	if reconnected.Colour != green() {
		t.Fatalf("expected reconnect to pick up the new colour")
	}
}

func TestDocumentCreateSubscribeAndRecordPropagation(t *testing.T) {
	b := NewServerBuffer()
	alice, err := b.Login("tok", "", protocol.LoginMsg{Name: "alice", Colour: red()})
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	bob, err := b.Login("tok", "", protocol.LoginMsg{Name: "bob", Colour: green()})
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}

	out, err := b.HandleDocumentCreate(alice.ID, protocol.DocumentCreateMsg{
		ID: 1, Title: "notes", Encoding: "utf-8", Content: "hello",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(out) != 1 || !out[0].Broadcast || out[0].Msg.DocumentCreate == nil {
		t.Fatalf("expected one broadcast DocumentCreate, got %+v", out)
	}

	key := model.Key{Owner: alice.ID, ID: 1}
	if _, ok := b.Document(key); !ok {
		t.Fatalf("expected document to be registered")
	}

	subOut, err := b.Subscribe(key, bob.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var gotFinal, gotSubscribeBroadcast bool
	for _, o := range subOut {
		if o.Msg.Document == nil {
			continue
		}
		if o.Msg.Document.SyncFinal != nil {
			gotFinal = true
		}
		if o.Msg.Document.Subscribe != nil && o.Broadcast {
			gotSubscribeBroadcast = true
		}
	}
	if !gotFinal {
		t.Fatalf("expected a sync_final among %+v", subOut)
	}
	if !gotSubscribeBroadcast {
		t.Fatalf("expected a broadcast subscribe notice among %+v", subOut)
	}

	doc, _ := b.Document(key)
	if doc.Text.String() != "hello" {
		t.Fatalf("expected document text %q, got %q", "hello", doc.Text.String())
	}
}

func TestRenameBroadcasts(t *testing.T) {
	b := NewServerBuffer()
	doc, err := b.CreateDocument(model.OwnerNone, 1, "untitled", "utf-8", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := b.Rename(doc.Key(), "renamed")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if len(out) != 1 || out[0].Msg.Document == nil || out[0].Msg.Document.Rename == nil {
		t.Fatalf("expected one rename broadcast, got %+v", out)
	}
	if doc.Title != "renamed" {
		t.Fatalf("expected title to update in place")
	}
}
