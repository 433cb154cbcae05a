package buffer

import (
	"fmt"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
)

// HandleDocument dispatches one per-document envelope from user against
// key's document. Subscribe/Unsubscribe/Record are authoritative server
// decisions; Rename likewise. sync_init/sync_chunk/sync_final never arrive
// from a client — they are server-to-client only — and are rejected.
func (b *Buffer) HandleDocument(key model.Key, user model.UserID, env *protocol.DocumentEnvelope) ([]Outbound, error) {
	switch {
	case env.Subscribe != nil:
		return b.Subscribe(key, user)
	case env.Unsubscribe != nil:
		return b.Unsubscribe(key, user)
	case env.Record != nil:
		return b.RemoteRecord(key, env.Record.Record, user)
	case env.Rename != nil:
		return b.Rename(key, env.Rename.NewTitle)
	default:
		return nil, fmt.Errorf("buffer: unexpected client-originated document message for %+v", key)
	}
}

// HandleDocumentCreate registers a client's document_create and broadcasts
// it to everyone else. The creating client already has it optimistically;
// it is not re-sent to them.
func (b *Buffer) HandleDocumentCreate(owner model.UserID, msg protocol.DocumentCreateMsg) ([]Outbound, error) {
	doc, err := b.CreateDocument(owner, msg.ID, msg.Title, msg.Encoding, msg.Content)
	if err != nil {
		return nil, err
	}
	return []Outbound{broadcast(protocol.ServerMsg{DocumentCreate: &protocol.DocumentCreateMsg{
		Owner:    doc.Owner,
		ID:       doc.ID,
		Title:    doc.Title,
		Encoding: doc.Encoding,
		Content:  msg.Content,
	}})}, nil
}

// HandleDocumentRemove removes a document and broadcasts its removal.
func (b *Buffer) HandleDocumentRemove(ref protocol.DocRef) ([]Outbound, error) {
	key := model.Key{Owner: ref.Owner, ID: ref.ID}
	if err := b.RemoveDocument(key); err != nil {
		return nil, err
	}
	return []Outbound{broadcast(protocol.ServerMsg{DocumentRemove: &protocol.DocumentRemoveMsg{Doc: ref}})}, nil
}

// HandleUserColour applies a colour change if it doesn't collide with
// another connected user, otherwise replies with user_colour_failed to the
// requester alone.
func (b *Buffer) HandleUserColour(user *model.User, msg protocol.UserColourMsg) []Outbound {
	for _, other := range b.Users.Connected() {
		if other.ID != user.ID && other.Colour.SimilarTo(msg.Colour) {
			return []Outbound{toUser(user.ID, protocol.ServerMsg{UserColourFailed: &struct{}{}})}
		}
	}
	user.Colour = msg.Colour
	return []Outbound{broadcast(protocol.ServerMsg{UserColour: &protocol.UserColourMsg{User: user.ID, Colour: msg.Colour}})}
}

// HandleChat relays a message/emote_message packet verbatim: chat is
// accepted at this layer but not otherwise interpreted.
func (b *Buffer) HandleChat(emote bool, msg protocol.ChatMsg) []Outbound {
	out := protocol.ServerMsg{}
	if emote {
		out.EmoteMessage = &msg
	} else {
		out.Message = &msg
	}
	return []Outbound{broadcast(out)}
}

// JoinBroadcast announces a newly logged-in (or reconnected) user to
// everyone else.
func JoinBroadcast(user *model.User) Outbound {
	return broadcast(protocol.ServerMsg{Join: &protocol.JoinMsg{
		User:   user.ID,
		Name:   user.Name,
		Colour: user.Colour,
	}})
}

// PartBroadcast announces a disconnection.
func PartBroadcast(user *model.User) Outbound {
	return broadcast(protocol.ServerMsg{Part: &protocol.PartMsg{PeerNetID: fmt.Sprintf("%d", user.ID)}})
}

// SyncSnapshot builds the sync_init/sync_usertable_user*/sync_doclist_document*/sync_final
// sequence sent to a newly logged-in user, before the join broadcast.
func (b *Buffer) SyncSnapshot(to model.UserID) []Outbound {
	users := b.Users.All()
	docs := b.Documents()

	var out []Outbound
	out = append(out, toUser(to, protocol.ServerMsg{SyncInit: &protocol.SyncInitCountMsg{Count: len(users) + len(docs)}}))
	for _, u := range users {
		out = append(out, toUser(to, protocol.ServerMsg{SyncUsertableUser: &protocol.SyncUsertableUserMsg{
			ID: u.ID, Name: u.Name, Colour: u.Colour,
		}}))
	}
	for _, d := range docs {
		out = append(out, toUser(to, protocol.ServerMsg{SyncDoclistDocument: &protocol.SyncDoclistDocumentMsg{
			Owner:         d.Owner,
			ID:            d.ID,
			Title:         d.Title,
			Encoding:      d.Encoding,
			Suffix:        b.Suffix(d),
			SubscriberIDs: d.Subscribers(),
		}}))
	}
	out = append(out, toUser(to, protocol.ServerMsg{SyncFinal: &struct{}{}}))
	return out
}
