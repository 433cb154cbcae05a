package model

import (
	"sort"
	"sync"

	"github.com/obbygo/obbygo/internal/ot"
)

// DocumentID is unique only within its owner's namespace: the pair
// (Owner, ID) is what identifies a document across the whole session.
type DocumentID = uint32

// OwnerNone marks a document created by the server rather than a user.
const OwnerNone UserID = 0

// Document is a document's session-visible metadata. Text is nil unless
// the local site is either the server or subscribed to this document: a
// document you merely know about (via sync_doclist) carries no content.
type Document struct {
	mu sync.RWMutex

	ID       DocumentID
	Owner    UserID
	Title    string
	Encoding string
	Text     *ot.Text

	subscribers map[UserID]bool
}

// NewDocument creates document metadata with no content and no
// subscribers; Text is attached separately once the site subscribes.
func NewDocument(owner UserID, id DocumentID, title, encoding string) *Document {
	return &Document{
		Owner:       owner,
		ID:          id,
		Title:       title,
		Encoding:    encoding,
		subscribers: make(map[UserID]bool),
	}
}

// Key is the globally unique (owner, id) pair for this document.
type Key struct {
	Owner UserID
	ID    DocumentID
}

func (d *Document) Key() Key { return Key{Owner: d.Owner, ID: d.ID} }

func (d *Document) Subscribe(user UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[user] = true
}

func (d *Document) Unsubscribe(user UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subscribers, user)
}

func (d *Document) IsSubscribed(user UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subscribers[user]
}

// Subscribers returns the subscribed user ids in ascending order.
func (d *Document) Subscribers() []UserID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]UserID, 0, len(d.subscribers))
	for u := range d.subscribers {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Assignable reports whether Text holds real content, i.e. the local site
// is the server or is subscribed.
func (d *Document) Assignable() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Text != nil
}
