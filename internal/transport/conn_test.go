package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub, err := NewHub("")
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	return hub
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) *protocol.ServerMsg {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg protocol.ServerMsg
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return &msg
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg *protocol.ClientMsg) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// loginAs drives the welcome/login handshake for one colour-distinct user
// and reads the sync snapshot through sync_final, leaving the join
// broadcast (if any) unread for the caller.
func loginAs(t *testing.T, conn *websocket.Conn, name string, colour model.Colour) {
	t.Helper()
	welcome := readMsg(t, conn)
	if welcome.Welcome == nil {
		t.Fatalf("expected Welcome, got %+v", welcome)
	}

	sendMsg(t, conn, &protocol.ClientMsg{Login: &protocol.LoginMsg{Name: name, Colour: colour}})

	for {
		msg := readMsg(t, conn)
		if msg.LoginFailed != nil {
			t.Fatalf("login failed: %s", msg.LoginFailed.Kind)
		}
		if msg.SyncFinal != nil {
			return
		}
	}
}

func TestLoginHandshakeAndSyncFinal(t *testing.T) {
	hub := testHub(t)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dial(t, ts)
	loginAs(t, conn, "alice", model.Colour{Red: 220, Green: 20, Blue: 20})
}

func TestTwoUsersLoginAndJoinBroadcast(t *testing.T) {
	hub := testHub(t)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	alice := dial(t, ts)
	loginAs(t, alice, "alice", model.Colour{Red: 220, Green: 20, Blue: 20})

	bob := dial(t, ts)
	loginAs(t, bob, "bob", model.Colour{Red: 20, Green: 220, Blue: 20})

	msg := readMsg(t, alice)
	if msg.Join == nil || msg.Join.Name != "bob" {
		t.Fatalf("expected alice to see bob's join broadcast, got %+v", msg)
	}
}

func TestDocumentCreateSubscribeAndEditPropagateOverTheWire(t *testing.T) {
	hub := testHub(t)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	alice := dial(t, ts)
	loginAs(t, alice, "alice", model.Colour{Red: 220, Green: 20, Blue: 20})

	bob := dial(t, ts)
	loginAs(t, bob, "bob", model.Colour{Red: 20, Green: 220, Blue: 20})
	readMsg(t, alice) // alice sees bob's join

	sendMsg(t, alice, &protocol.ClientMsg{DocumentCreate: &protocol.DocumentCreateMsg{
		ID: 1, Title: "notes", Encoding: "utf-8", Content: "hello",
	}})
	created := readMsg(t, bob)
	if created.DocumentCreate == nil || created.DocumentCreate.Title != "notes" {
		t.Fatalf("expected bob to see the document_create broadcast, got %+v", created)
	}

	hub.mu.Lock()
	users := hub.Buf.Users.All()
	hub.mu.Unlock()
	var aliceID model.UserID
	for _, u := range users {
		if u.Name == "alice" {
			aliceID = u.ID
		}
	}
	doc := protocol.DocRef{Owner: aliceID, ID: 1}

	sendMsg(t, bob, &protocol.ClientMsg{Document: &protocol.DocumentEnvelope{
		Doc:       doc,
		Subscribe: &protocol.SubscribeMsg{},
	}})

	var sawChunk, sawFinal bool
	for !sawFinal {
		msg := readMsg(t, bob)
		if msg.Document == nil {
			continue
		}
		if msg.Document.SyncChunk != nil && msg.Document.SyncChunk.Text == "hello" {
			sawChunk = true
		}
		if msg.Document.SyncFinal != nil {
			sawFinal = true
		}
	}
	if !sawChunk {
		t.Fatalf("expected bob's subscribe to stream the existing chunk content")
	}

	alice1 := readMsg(t, alice) // subscribe broadcast
	if alice1.Document == nil || alice1.Document.Subscribe == nil {
		t.Fatalf("expected alice to see bob's subscribe broadcast, got %+v", alice1)
	}
}

func TestUnknownClientPacketClosesNeitherSideButIsIgnored(t *testing.T) {
	hub := testHub(t)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dial(t, ts)
	welcome := readMsg(t, conn)
	if welcome.Welcome == nil {
		t.Fatalf("expected Welcome, got %+v", welcome)
	}

	// A CommandQuery before login isn't a Login packet: the server should
	// reply with login_failed(not_encrypted) and keep waiting, not hang up.
	sendMsg(t, conn, &protocol.ClientMsg{CommandQuery: &protocol.CommandQueryMsg{Command: "help"}})
	msg := readMsg(t, conn)
	if msg.LoginFailed == nil {
		t.Fatalf("expected login_failed while unauthenticated, got %+v", msg)
	}

	loginAs(t, conn, "carol", model.Colour{Red: 20, Green: 20, Blue: 220})
}
