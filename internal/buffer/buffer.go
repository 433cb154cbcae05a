// Package buffer is the session controller that ties the user table,
// document list, and per-document sync together behind the single dispatch
// surface a transport loop drives. One Buffer serves a whole process on the
// server, one per connection on the client; a host composes both instead of
// the original's virtual multiple inheritance across Client/Server variants.
package buffer

import (
	"fmt"
	"sort"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
	"github.com/obbygo/obbygo/internal/protocol"
	"github.com/obbygo/obbygo/internal/session"
)

// Role selects which side of the protocol a Buffer plays. All three share
// this package's dispatch logic; only what each owns differs.
type Role int

const (
	ClientRole Role = iota
	ServerRole
	HostRole
)

func (r Role) String() string {
	switch r {
	case ClientRole:
		return "client"
	case ServerRole:
		return "server"
	case HostRole:
		return "host"
	default:
		return "unknown"
	}
}

// Outbound pairs a message with its recipients. To names specific users;
// Broadcast, when true, means every other connected user. A transport loop
// drains these after each dispatch call and fans them out over its sockets.
type Outbound struct {
	To        []model.UserID
	Broadcast bool
	Msg       protocol.ServerMsg
}

func toUser(user model.UserID, msg protocol.ServerMsg) Outbound {
	return Outbound{To: []model.UserID{user}, Msg: msg}
}

func broadcast(msg protocol.ServerMsg) Outbound {
	return Outbound{Broadcast: true, Msg: msg}
}

// docEntry is the server-side bookkeeping kept for one document: its
// metadata plus the Jupiter multiplexer and subscription state machine
// serving its subscribers. A client-role Buffer never populates sess; it
// drives a session.ClientEngine per subscribed document instead, owned by
// the transport layer that actually talks to the server.
type docEntry struct {
	meta *model.Document
	sess *session.DocSession
}

// Buffer owns the user table and document list for one side of the
// protocol, and dispatches inbound messages into model/session mutations
// plus the Outbound messages that must follow.
type Buffer struct {
	Role  Role
	Users *model.UserTable

	docs map[model.Key]*docEntry

	// Self is the locally driven user, distinct from every other entry in
	// Users. No code in this package assigns it; it stays nil unless a
	// caller sets it.
	Self *model.User

	localUser *model.User // never assigned: no user is created before login
}

// NewServerBuffer returns an authoritative, empty Buffer.
func NewServerBuffer() *Buffer {
	return &Buffer{
		Role:  ServerRole,
		Users: model.NewUserTable(),
		docs:  make(map[model.Key]*docEntry),
	}
}

// NewClientBuffer returns a Buffer mirroring server state for one
// connection, before login.
func NewClientBuffer() *Buffer {
	return &Buffer{
		Role:  ClientRole,
		Users: model.NewUserTable(),
		docs:  make(map[model.Key]*docEntry),
	}
}

// NewHostBuffer returns a server Buffer whose Role is HostRole. It creates
// no local user and reserves no name or colour: Self stays nil, and a local
// user is added only through Login, like any other client.
func NewHostBuffer() *Buffer {
	b := NewServerBuffer()
	b.Role = HostRole
	return b
}

// Document looks up a document's metadata by key.
func (b *Buffer) Document(key model.Key) (*model.Document, bool) {
	e, ok := b.docs[key]
	if !ok {
		return nil, false
	}
	return e.meta, true
}

// Documents returns every known document, sorted by (owner, id) so callers
// streaming sync_doclist_document converge on the same order.
func (b *Buffer) Documents() []*model.Document {
	out := make([]*model.Document, 0, len(b.docs))
	for _, e := range b.docs {
		out = append(out, e.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Suffix returns the display suffix that disambiguates doc's title among
// every other known document sharing it.
func (b *Buffer) Suffix(doc *model.Document) int {
	docs := b.Documents()
	for i, d := range docs {
		if d == doc {
			return model.FindFreeSuffix(docs[:i], doc.Title, doc)
		}
	}
	return model.FindFreeSuffix(docs, doc.Title, doc)
}

// CreateDocument registers a document exactly as proposed: the server is
// authoritative over the document list but accepts the id as-given, scoped
// by owner, rather than renumbering a client's optimistic allocation.
// owner may be model.OwnerNone for a server-authored document.
func (b *Buffer) CreateDocument(owner model.UserID, id model.DocumentID, title, encoding, content string) (*model.Document, error) {
	key := model.Key{Owner: owner, ID: id}
	if _, exists := b.docs[key]; exists {
		return nil, fmt.Errorf("buffer: document %+v already exists", key)
	}
	doc := model.NewDocument(owner, id, title, encoding)
	doc.Text = ot.NewTextFromString(content, owner, ot.DefaultMaxChunk)
	b.docs[key] = &docEntry{meta: doc, sess: session.NewDocSession(session.NewMultiplexer(doc.Text))}
	return doc, nil
}

// RemoveDocument drops a document and everything subscribed to it.
func (b *Buffer) RemoveDocument(key model.Key) error {
	if _, ok := b.docs[key]; !ok {
		return fmt.Errorf("buffer: no such document %+v", key)
	}
	delete(b.docs, key)
	return nil
}

// Subscribe begins the chunked content push for user joining key: it opens
// the subscription state machine, streams every chunk of the current text
// as of right now, and finishes the handshake, returning the sync messages
// for user plus any records generated while the push was in flight
// (queued and replayed per the subscription ordering guarantee).
func (b *Buffer) Subscribe(key model.Key, user model.UserID) ([]Outbound, error) {
	e, ok := b.docs[key]
	if !ok {
		return nil, fmt.Errorf("buffer: no such document %+v", key)
	}
	if err := e.sess.BeginSubscribe(user); err != nil {
		return nil, err
	}

	chunks := e.meta.Text.ChunkIter()

	var out []Outbound
	out = append(out, toUser(user, protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc:      docRef(key),
		SyncInit: &protocol.SyncInitMsg{SizeHint: len(chunks)},
	}}))
	for _, c := range chunks {
		out = append(out, toUser(user, protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
			Doc:       docRef(key),
			SyncChunk: &protocol.SyncChunkMsg{Text: c.Text, Author: c.Author},
		}}))
	}

	queued, err := e.sess.FinishSubscribe(user)
	if err != nil {
		return nil, err
	}

	out = append(out, toUser(user, protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc:       docRef(key),
		SyncFinal: &struct{}{},
	}}))
	for _, rec := range queued {
		out = append(out, toUser(user, recordEnvelope(key, rec)))
	}

	e.meta.Subscribe(user)
	out = append(out, broadcast(protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc:       docRef(key),
		Subscribe: &protocol.SubscribeMsg{User: user},
	}}))
	return out, nil
}

// Unsubscribe ends user's subscription to key and broadcasts the departure.
func (b *Buffer) Unsubscribe(key model.Key, user model.UserID) ([]Outbound, error) {
	e, ok := b.docs[key]
	if !ok {
		return nil, fmt.Errorf("buffer: no such document %+v", key)
	}
	if err := e.sess.BeginUnsubscribe(user); err != nil {
		return nil, err
	}
	if err := e.sess.FinishUnsubscribe(user); err != nil {
		return nil, err
	}
	e.meta.Unsubscribe(user)
	return []Outbound{broadcast(protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc:         docRef(key),
		Unsubscribe: &protocol.SubscribeMsg{User: user},
	}})}, nil
}

// DisconnectDocuments tears down every subscription user holds across all
// documents, as required on disconnect: one unsubscribe broadcast per
// document the user was in.
func (b *Buffer) DisconnectDocuments(user model.UserID) []Outbound {
	var out []Outbound
	for key, e := range b.docs {
		if !e.meta.IsSubscribed(user) {
			continue
		}
		if out2, err := b.Unsubscribe(key, user); err == nil {
			out = append(out, out2...)
		}
	}
	return out
}

// RemoteRecord folds a record received from the author of one of key's
// subscribers through that subscriber's pair and rebroadcasts the result.
func (b *Buffer) RemoteRecord(key model.Key, rec ot.Record, from model.UserID) ([]Outbound, error) {
	e, ok := b.docs[key]
	if !ok {
		return nil, fmt.Errorf("buffer: no such document %+v", key)
	}
	ready, err := e.sess.RemoteOp(rec, from)
	if err != nil {
		return nil, err
	}
	out := make([]Outbound, 0, len(ready))
	for _, r := range ready {
		out = append(out, toUser(r.Target, recordEnvelope(key, r)))
	}
	return out, nil
}

// Rename changes a document's title, authoritative on the server.
func (b *Buffer) Rename(key model.Key, newTitle string) ([]Outbound, error) {
	e, ok := b.docs[key]
	if !ok {
		return nil, fmt.Errorf("buffer: no such document %+v", key)
	}
	e.meta.Title = newTitle
	return []Outbound{broadcast(protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc:    docRef(key),
		Rename: &protocol.RenameMsg{NewTitle: newTitle},
	}})}, nil
}

func docRef(key model.Key) protocol.DocRef {
	return protocol.DocRef{Owner: key.Owner, ID: key.ID}
}

func recordEnvelope(key model.Key, ready session.RecordReady) protocol.ServerMsg {
	return protocol.ServerMsg{Document: &protocol.DocumentEnvelope{
		Doc: docRef(key),
		Record: &protocol.RecordMsg{
			Author: ready.Originator,
			Record: ready.Record,
		},
	}}
}
