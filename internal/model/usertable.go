package model

import "sync"

// UserTable is the authoritative map of users for one session. It
// guarantees unique ids, exposes lookup by id or name, and checks colours
// against those of connected users.
type UserTable struct {
	mu      sync.RWMutex
	byID    map[UserID]*User
	nextID  UserID
	onAdd   func(*User)
	onLeave func(*User)
}

// NewUserTable returns an empty table. The next assigned id is 1.
func NewUserTable() *UserTable {
	return &UserTable{byID: make(map[UserID]*User), nextID: 1}
}

// OnUserAdded registers a hook fired after a user is inserted or
// reconnected.
func (t *UserTable) OnUserAdded(fn func(*User)) { t.onAdd = fn }

// OnUserLeft registers a hook fired before a user is marked disconnected,
// so callers that rebroadcast a "user left" notification based on this
// hook still see the user as connected in the table while building it.
func (t *UserTable) OnUserLeft(fn func(*User)) { t.onLeave = fn }

// AddConnected inserts a brand-new connected user and assigns it the next
// free id.
func (t *UserTable) AddConnected(name string, colour Colour) *User {
	t.mu.Lock()
	u := &User{ID: t.nextID, Name: name, Colour: colour, Connected: true}
	t.byID[u.ID] = u
	t.nextID++
	t.mu.Unlock()
	if t.onAdd != nil {
		t.onAdd(u)
	}
	return u
}

// RestoreUser inserts a user loaded from storage with its original id,
// disconnected, and advances nextID past it so freshly created users never
// collide with a restored one.
func (t *UserTable) RestoreUser(id UserID, name string, colour Colour) *User {
	t.mu.Lock()
	u := &User{ID: id, Name: name, Colour: colour, Connected: false}
	t.byID[id] = u
	if id >= t.nextID {
		t.nextID = id + 1
	}
	t.mu.Unlock()
	return u
}

// Reconnect marks an existing, disconnected user as connected again,
// updating its colour to the one presented at login.
func (t *UserTable) Reconnect(id UserID, colour Colour) (*User, bool) {
	t.mu.Lock()
	u, ok := t.byID[id]
	if !ok || u.Connected {
		t.mu.Unlock()
		return nil, false
	}
	u.Connected = true
	u.Colour = colour
	t.mu.Unlock()
	if t.onAdd != nil {
		t.onAdd(u)
	}
	return u, true
}

// RemoveUser marks a user disconnected without forgetting their identity,
// so a later reconnect keeps history attributed to the same id. The
// disconnect hook fires while the user is still marked connected, then the
// flag flips: listeners that want to announce "user X left" see a
// consistent table snapshot as of the moment the user was still present.
func (t *UserTable) RemoveUser(id UserID) bool {
	t.mu.Lock()
	u, ok := t.byID[id]
	if !ok || !u.Connected {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()
	if t.onLeave != nil {
		t.onLeave(u)
	}
	t.mu.Lock()
	u.Connected = false
	t.mu.Unlock()
	return true
}

func (t *UserTable) FindByID(id UserID) (*User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.byID[id]
	return u, ok
}

func (t *UserTable) FindByName(name string) (*User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, u := range t.byID {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// ColourInUse reports whether any connected user has a colour similar to c.
func (t *UserTable) ColourInUse(c Colour) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, u := range t.byID {
		if u.Connected && u.Colour.SimilarTo(c) {
			return true
		}
	}
	return false
}

// Connected returns every currently connected user, sorted by id.
func (t *UserTable) Connected() []*User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*User, 0, len(t.byID))
	for _, u := range t.byID {
		if u.Connected {
			out = append(out, u)
		}
	}
	sortUsersByID(out)
	return out
}

// All returns every user the table has ever seen, connected or not, sorted
// by id.
func (t *UserTable) All() []*User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*User, 0, len(t.byID))
	for _, u := range t.byID {
		out = append(out, u)
	}
	sortUsersByID(out)
	return out
}

func sortUsersByID(users []*User) {
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j].ID < users[j-1].ID; j-- {
			users[j], users[j-1] = users[j-1], users[j]
		}
	}
}
