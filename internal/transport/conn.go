package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/obbygo/obbygo/internal/buffer"
	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
	"github.com/obbygo/obbygo/pkg/logger"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// errClosed signals a normal client-initiated close, distinguished from a
// read/write failure so Handle can return a nil error for it.
var errClosed = errors.New("transport: connection closed normally")

// Conn manages one client WebSocket's lifecycle against a shared Hub: the
// pre-login welcome, the login handshake, and the per-packet dispatch loop
// afterwards.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	user model.UserID

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConn wraps an accepted WebSocket connection. The returned Conn has no
// user until login completes.
func NewConn(hub *Hub, ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{hub: hub, ws: ws, ctx: ctx, cancel: cancel}
}

// Handle runs the connection to completion: welcome, login, then dispatch
// until the socket closes or ctx is cancelled.
func (c *Conn) Handle(ctx context.Context) error {
	defer c.cleanup()

	token := buffer.NewConnectionToken()
	welcome := buffer.Welcome(c.hub.Identity.PublicKey(), token)
	if err := c.send(protocol.ServerMsg{Welcome: &welcome}); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}

	if err := c.loginLoop(ctx, token); err != nil {
		if errors.Is(err, errClosed) {
			return nil
		}
		return err
	}

	outbox := c.hub.register(c.user)
	drained := make(chan struct{})
	go c.drainOutbox(outbox, drained)

	defer func() {
		c.hub.unregister(c.user)
		<-drained
	}()

	if err := c.dispatchLoop(ctx); err != nil {
		if errors.Is(err, errClosed) {
			return nil
		}
		return err
	}
	return nil
}

// loginLoop rejects non-login packets and retries recoverable login
// failures (name/colour conflicts, wrong password) until one succeeds or
// the connection closes.
func (c *Conn) loginLoop(ctx context.Context, token string) error {
	for {
		var msg protocol.ClientMsg
		if err := c.read(ctx, &msg); err != nil {
			return err
		}
		if msg.Login == nil {
			if err := c.send(protocol.ServerMsg{LoginFailed: &protocol.LoginErrorMsg{
				Kind: protocol.LoginErrorNotEncrypted,
			}}); err != nil {
				return err
			}
			continue
		}

		if c.hub.Metrics != nil {
			c.hub.Metrics.LoginAttempts.Inc()
		}
		c.hub.mu.Lock()
		user, loginErr := c.hub.Buf.Login(token, c.hub.GlobalPassword, *msg.Login)
		c.hub.mu.Unlock()
		if loginErr != nil {
			if c.hub.Metrics != nil {
				c.hub.Metrics.LoginFailures.Inc()
			}
			if err := c.send(protocol.ServerMsg{LoginFailed: &protocol.LoginErrorMsg{Kind: loginErr.Kind}}); err != nil {
				return err
			}
			continue
		}

		c.user = user.ID
		return c.afterLogin()
	}
}

// afterLogin sends the sync snapshot before broadcasting the join, so no
// other client's join notice can race ahead of this user's own view of who
// else is already present.
func (c *Conn) afterLogin() error {
	c.hub.mu.Lock()
	snapshot := c.hub.Buf.SyncSnapshot(c.user)
	c.hub.mu.Unlock()

	for _, o := range snapshot {
		if err := c.send(o.Msg); err != nil {
			return fmt.Errorf("send sync snapshot: %w", err)
		}
	}

	c.hub.mu.Lock()
	user, _ := c.hub.Buf.Users.FindByID(c.user)
	c.hub.mu.Unlock()
	if user != nil {
		c.hub.deliver(c.user, []buffer.Outbound{buffer.JoinBroadcast(user)})
	}
	return nil
}

func (c *Conn) dispatchLoop(ctx context.Context) error {
	for {
		var msg protocol.ClientMsg
		if err := c.read(ctx, &msg); err != nil {
			return err
		}

		c.hub.mu.Lock()
		out, err := c.handle(&msg)
		c.hub.mu.Unlock()
		if err != nil {
			logger.Error("transport: error handling message from user %d: %v", c.user, err)
			if c.hub.Metrics != nil {
				c.hub.Metrics.ProtocolErrors.Inc()
			}
			continue
		}
		if c.hub.Metrics != nil {
			c.recordMetrics(&msg, out)
		}
		c.hub.deliver(c.user, out)
	}
}

// handle dispatches one client message against the hub's buffer. Callers
// must hold c.hub.mu.
func (c *Conn) handle(msg *protocol.ClientMsg) ([]buffer.Outbound, error) {
	switch {
	case msg.Document != nil:
		key := model.Key{Owner: msg.Document.Doc.Owner, ID: msg.Document.Doc.ID}
		return c.hub.Buf.HandleDocument(key, c.user, msg.Document)
	case msg.DocumentCreate != nil:
		return c.hub.Buf.HandleDocumentCreate(c.user, *msg.DocumentCreate)
	case msg.DocumentRemove != nil:
		return c.hub.Buf.HandleDocumentRemove(msg.DocumentRemove.Doc)
	case msg.UserColour != nil:
		user, ok := c.hub.Buf.Users.FindByID(c.user)
		if !ok {
			return nil, fmt.Errorf("transport: unknown user %d", c.user)
		}
		return c.hub.Buf.HandleUserColour(user, *msg.UserColour), nil
	case msg.UserPassword != nil:
		user, ok := c.hub.Buf.Users.FindByID(c.user)
		if !ok {
			return nil, fmt.Errorf("transport: unknown user %d", c.user)
		}
		return nil, c.hub.Buf.SetUserPassword(c.hub.Identity, user, *msg.UserPassword)
	case msg.Message != nil:
		return c.hub.Buf.HandleChat(false, *msg.Message), nil
	case msg.EmoteMessage != nil:
		return c.hub.Buf.HandleChat(true, *msg.EmoteMessage), nil
	case msg.CommandQuery != nil:
		return nil, fmt.Errorf("transport: command_query is not implemented")
	default:
		return nil, fmt.Errorf("transport: empty client message")
	}
}

// recordMetrics updates the op/document counters for one successfully
// dispatched message. Callers must not hold c.hub.mu: it takes that lock
// itself to count the buffer's documents.
func (c *Conn) recordMetrics(msg *protocol.ClientMsg, out []buffer.Outbound) {
	if msg.Document != nil && msg.Document.Record != nil {
		c.hub.Metrics.OpsApplied.Inc()
	}
	if msg.DocumentCreate != nil || msg.DocumentRemove != nil {
		c.hub.mu.Lock()
		c.hub.Metrics.ActiveDocuments.Set(float64(len(c.hub.Buf.Documents())))
		c.hub.mu.Unlock()
	}
	for _, o := range out {
		if o.Msg.Document != nil && o.Msg.Document.Record != nil {
			c.hub.Metrics.RecordsRelayed.Inc()
		}
	}
}

func (c *Conn) drainOutbox(outbox <-chan protocol.ServerMsg, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-outbox:
			if !ok {
				return
			}
			if err := c.send(msg); err != nil {
				logger.Error("transport: broadcasting to user %d: %v", c.user, err)
				c.cancel()
				return
			}
		}
	}
}

func (c *Conn) read(ctx context.Context, msg *protocol.ClientMsg) error {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	err := wsjson.Read(readCtx, c.ws, msg)
	if err != nil && websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return errClosed
	}
	return err
}

func (c *Conn) send(msg protocol.ServerMsg) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.ws, &msg)
}

func (c *Conn) cleanup() {
	c.cancel()
	if c.user == 0 {
		return
	}
	c.hub.mu.Lock()
	out := c.hub.Buf.DisconnectDocuments(c.user)
	user, ok := c.hub.Buf.Users.FindByID(c.user)
	c.hub.Buf.Users.RemoveUser(c.user)
	c.hub.mu.Unlock()

	if ok {
		out = append(out, buffer.PartBroadcast(user))
	}
	c.hub.deliver(c.user, out)
}
