package buffer

import (
	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
	"github.com/obbygo/obbygo/internal/session"
	"github.com/obbygo/obbygo/pkg/persist"
)

// RestoreUser re-inserts a user loaded from storage, identity and colour
// intact but disconnected, as if they had never reconnected since the
// session was saved.
func (b *Buffer) RestoreUser(id model.UserID, name string, colour model.Colour) {
	b.Users.RestoreUser(id, name, colour)
}

// RestoreDocument re-inserts a document loaded from storage with its
// content already authored (each chunk keeps the author it was saved
// with), and opens a fresh multiplexer over it the same way CreateDocument
// does for a brand-new document. Unlike CreateDocument it overwrites
// whatever already occupies the key, since it is meant for loading into an
// empty buffer at startup, not for merging into a live one.
func (b *Buffer) RestoreDocument(owner model.UserID, id model.DocumentID, title, encoding string, text *ot.Text) *model.Document {
	key := model.Key{Owner: owner, ID: id}
	doc := model.NewDocument(owner, id, title, encoding)
	doc.Text = text
	b.docs[key] = &docEntry{meta: doc, sess: session.NewDocSession(session.NewMultiplexer(doc.Text))}
	return doc
}

// Snapshot captures the whole buffer as a persist.Session: every known
// user (connected or not) and every document's current content, in
// authored-chunk form.
func (b *Buffer) Snapshot() persist.Session {
	s := persist.Session{Version: persist.FormatVersion}
	for _, u := range b.Users.All() {
		s.Users = append(s.Users, persist.UserRecord{ID: u.ID, Name: u.Name, Colour: u.Colour})
	}
	for _, doc := range b.Documents() {
		s.Documents = append(s.Documents, persist.FromDocument(doc))
	}
	return s
}

// LoadSnapshot repopulates an empty Buffer from a persist.Session, as read
// back from storage at startup. Every user is restored disconnected;
// reconnecting is left to the usual login handshake.
func (b *Buffer) LoadSnapshot(s persist.Session) {
	for _, u := range s.Users {
		b.RestoreUser(u.ID, u.Name, u.Colour)
	}
	for _, doc := range s.Documents {
		b.RestoreDocument(doc.Owner, doc.ID, doc.Title, doc.Encoding, doc.Text(ot.DefaultMaxChunk))
	}
}
