// Package protocol defines the WebSocket message protocol between client
// and server: the top-level packet table and the per-document envelope.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

// DocRef names a document by its (owner, id) pair, the only thing that
// identifies a document globally.
type DocRef struct {
	Owner model.UserID    `json:"owner"`
	ID    model.DocumentID `json:"id"`
}

// LoginMsg is the client's reply to Welcome.
type LoginMsg struct {
	Name               string       `json:"name"`
	Colour             model.Colour `json:"colour"`
	GlobalPasswordHash string       `json:"global_password_hash,omitempty"`
	UserPasswordHash   string       `json:"user_password_hash,omitempty"`
}

// DocumentCreateMsg creates a document, client-optimistic or
// server-authoritative depending on direction.
type DocumentCreateMsg struct {
	Owner    model.UserID     `json:"owner"`
	ID       model.DocumentID `json:"id"`
	Title    string           `json:"title"`
	Encoding string           `json:"encoding"`
	Content  string           `json:"content"`
}

// DocumentRemoveMsg removes a document by reference.
type DocumentRemoveMsg struct {
	Doc DocRef `json:"doc"`
}

// ChatMsg covers both message and emote_message: chat is accepted at this
// layer but not interpreted.
type ChatMsg struct {
	From model.UserID `json:"from,omitempty"`
	Text string       `json:"text"`
}

// UserColourMsg requests or announces a colour change.
type UserColourMsg struct {
	User   model.UserID `json:"user"`
	Colour model.Colour `json:"colour"`
}

// UserPasswordMsg carries a new password, RSA-OAEP encrypted with the
// server's public key so it never crosses the wire in the clear.
type UserPasswordMsg struct {
	EncryptedPassword []byte `json:"encrypted_password"`
}

// CommandQueryMsg is a server-side command invocation (/me, /help, ...).
type CommandQueryMsg struct {
	Command string   `json:"command"`
	Params  []string `json:"params"`
}

// CommandResultMsg is the reply to a CommandQueryMsg.
type CommandResultMsg struct {
	Kind  string `json:"kind"`
	Reply string `json:"reply,omitempty"`
}

// WelcomeMsg is sent before login and carries everything the client needs
// to authenticate: the protocol version, a per-connection token used in
// password hashing, and the server's RSA public key for encrypted replies.
type WelcomeMsg struct {
	ProtocolVersion  uint32 `json:"protocol_version"`
	Token            string `json:"token"`
	ServerPublicKeyN string `json:"server_public_key_n"`
	ServerPublicKeyE string `json:"server_public_key_e"`
}

// LoginErrorMsg reports why a login attempt failed.
type LoginErrorMsg struct {
	Kind string `json:"kind"`
}

// JoinMsg broadcasts a newly logged-in (or reconnected) user.
type JoinMsg struct {
	PeerNetID string       `json:"peer_net_id"`
	User      model.UserID `json:"user"`
	Name      string       `json:"name"`
	Colour    model.Colour `json:"colour"`
}

// PartMsg broadcasts a disconnection.
type PartMsg struct {
	PeerNetID string `json:"peer_net_id"`
}

// SyncInitCountMsg opens the top-level sync sequence: count is the number
// of sync_usertable_user plus sync_doclist_document messages to follow.
type SyncInitCountMsg struct {
	Count int `json:"count"`
}

// SyncUsertableUserMsg streams one known user (connected or not) during
// initial sync.
type SyncUsertableUserMsg struct {
	ID     model.UserID `json:"id"`
	Name   string       `json:"name"`
	Colour model.Colour `json:"colour"`
}

// SyncDoclistDocumentMsg streams one document's metadata during initial
// sync, including its display suffix so every peer agrees on it.
type SyncDoclistDocumentMsg struct {
	Owner         model.UserID     `json:"owner"`
	ID            model.DocumentID `json:"id"`
	Title         string           `json:"title"`
	Encoding      string           `json:"encoding"`
	Suffix        int              `json:"suffix"`
	SubscriberIDs []model.UserID   `json:"subscriber_ids"`
}

// RenameMsg renames the enclosing document.
type RenameMsg struct {
	NewTitle string `json:"new_title"`
}

// RecordMsg transports one OT record, tagged with the author so replays
// through the server preserve the original author's identity rather than
// the server's.
type RecordMsg struct {
	Author model.UserID `json:"author"`
	Record ot.Record    `json:"record"`
}

// SubscribeMsg names the user being subscribed or unsubscribed.
type SubscribeMsg struct {
	User model.UserID `json:"user"`
}

// SyncInitMsg opens the per-document chunked content push.
type SyncInitMsg struct {
	SizeHint int `json:"size_hint"`
}

// SyncChunkMsg carries one authored chunk of a document's initial content.
type SyncChunkMsg struct {
	Text   string       `json:"text"`
	Author model.UserID `json:"author"`
}

// DocumentEnvelope scopes a message to one document: every per-document
// message in the protocol rides inside one of these, never bare.
type DocumentEnvelope struct {
	Doc DocRef `json:"doc"`

	Rename      *RenameMsg    `json:"rename,omitempty"`
	Record      *RecordMsg    `json:"record,omitempty"`
	Subscribe   *SubscribeMsg `json:"subscribe,omitempty"`
	Unsubscribe *SubscribeMsg `json:"unsubscribe,omitempty"`
	SyncInit    *SyncInitMsg  `json:"sync_init,omitempty"`
	SyncChunk   *SyncChunkMsg `json:"sync_chunk,omitempty"`
	SyncFinal   *struct{}     `json:"sync_final,omitempty"`
}

// ClientMsg is the tagged union of every packet a client may send. Exactly
// one field is set per message.
type ClientMsg struct {
	Login          *LoginMsg          `json:"Login,omitempty"`
	DocumentCreate *DocumentCreateMsg `json:"DocumentCreate,omitempty"`
	DocumentRemove *DocumentRemoveMsg `json:"DocumentRemove,omitempty"`
	Message        *ChatMsg           `json:"Message,omitempty"`
	EmoteMessage   *ChatMsg           `json:"EmoteMessage,omitempty"`
	UserColour     *UserColourMsg     `json:"UserColour,omitempty"`
	UserPassword   *UserPasswordMsg   `json:"UserPassword,omitempty"`
	Document       *DocumentEnvelope  `json:"Document,omitempty"`
	CommandQuery   *CommandQueryMsg   `json:"CommandQuery,omitempty"`
}

// ServerMsg is the tagged union of every packet a server may send. Exactly
// one field is set per message.
type ServerMsg struct {
	Welcome             *WelcomeMsg             `json:"Welcome,omitempty"`
	LoginFailed         *LoginErrorMsg          `json:"LoginFailed,omitempty"`
	Join                *JoinMsg                `json:"Join,omitempty"`
	Part                *PartMsg                `json:"Part,omitempty"`
	SyncInit            *SyncInitCountMsg       `json:"SyncInit,omitempty"`
	SyncUsertableUser   *SyncUsertableUserMsg   `json:"SyncUsertableUser,omitempty"`
	SyncDoclistDocument *SyncDoclistDocumentMsg `json:"SyncDoclistDocument,omitempty"`
	SyncFinal           *struct{}               `json:"SyncFinal,omitempty"`
	DocumentCreate      *DocumentCreateMsg      `json:"DocumentCreate,omitempty"`
	DocumentRemove      *DocumentRemoveMsg      `json:"DocumentRemove,omitempty"`
	Message             *ChatMsg                `json:"Message,omitempty"`
	EmoteMessage        *ChatMsg                `json:"EmoteMessage,omitempty"`
	UserColour          *UserColourMsg          `json:"UserColour,omitempty"`
	UserColourFailed    *struct{}               `json:"UserColourFailed,omitempty"`
	Document            *DocumentEnvelope       `json:"Document,omitempty"`
	CommandResult       *CommandResultMsg       `json:"CommandResult,omitempty"`
}

// MarshalJSON ensures exactly one tagged field is present in the output.
func (m *ClientMsg) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case m.Login != nil:
		result["Login"] = m.Login
	case m.DocumentCreate != nil:
		result["DocumentCreate"] = m.DocumentCreate
	case m.DocumentRemove != nil:
		result["DocumentRemove"] = m.DocumentRemove
	case m.Message != nil:
		result["Message"] = m.Message
	case m.EmoteMessage != nil:
		result["EmoteMessage"] = m.EmoteMessage
	case m.UserColour != nil:
		result["UserColour"] = m.UserColour
	case m.UserPassword != nil:
		result["UserPassword"] = m.UserPassword
	case m.Document != nil:
		result["Document"] = m.Document
	case m.CommandQuery != nil:
		result["CommandQuery"] = m.CommandQuery
	default:
		return nil, fmt.Errorf("protocol: empty ClientMsg")
	}
	return json.Marshal(result)
}

// UnmarshalJSON decodes whichever single tagged field is present.
func (m *ClientMsg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["Login"]; ok {
		m.Login = new(LoginMsg)
		return json.Unmarshal(v, m.Login)
	}
	if v, ok := raw["DocumentCreate"]; ok {
		m.DocumentCreate = new(DocumentCreateMsg)
		return json.Unmarshal(v, m.DocumentCreate)
	}
	if v, ok := raw["DocumentRemove"]; ok {
		m.DocumentRemove = new(DocumentRemoveMsg)
		return json.Unmarshal(v, m.DocumentRemove)
	}
	if v, ok := raw["Message"]; ok {
		m.Message = new(ChatMsg)
		return json.Unmarshal(v, m.Message)
	}
	if v, ok := raw["EmoteMessage"]; ok {
		m.EmoteMessage = new(ChatMsg)
		return json.Unmarshal(v, m.EmoteMessage)
	}
	if v, ok := raw["UserColour"]; ok {
		m.UserColour = new(UserColourMsg)
		return json.Unmarshal(v, m.UserColour)
	}
	if v, ok := raw["UserPassword"]; ok {
		m.UserPassword = new(UserPasswordMsg)
		return json.Unmarshal(v, m.UserPassword)
	}
	if v, ok := raw["Document"]; ok {
		m.Document = new(DocumentEnvelope)
		return json.Unmarshal(v, m.Document)
	}
	if v, ok := raw["CommandQuery"]; ok {
		m.CommandQuery = new(CommandQueryMsg)
		return json.Unmarshal(v, m.CommandQuery)
	}
	return fmt.Errorf("protocol: unrecognized ClientMsg: %s", data)
}

// MarshalJSON mirrors ClientMsg.MarshalJSON for the server's message set.
func (m *ServerMsg) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case m.Welcome != nil:
		result["Welcome"] = m.Welcome
	case m.LoginFailed != nil:
		result["LoginFailed"] = m.LoginFailed
	case m.Join != nil:
		result["Join"] = m.Join
	case m.Part != nil:
		result["Part"] = m.Part
	case m.SyncInit != nil:
		result["SyncInit"] = m.SyncInit
	case m.SyncUsertableUser != nil:
		result["SyncUsertableUser"] = m.SyncUsertableUser
	case m.SyncDoclistDocument != nil:
		result["SyncDoclistDocument"] = m.SyncDoclistDocument
	case m.SyncFinal != nil:
		result["SyncFinal"] = m.SyncFinal
	case m.DocumentCreate != nil:
		result["DocumentCreate"] = m.DocumentCreate
	case m.DocumentRemove != nil:
		result["DocumentRemove"] = m.DocumentRemove
	case m.Message != nil:
		result["Message"] = m.Message
	case m.EmoteMessage != nil:
		result["EmoteMessage"] = m.EmoteMessage
	case m.UserColour != nil:
		result["UserColour"] = m.UserColour
	case m.UserColourFailed != nil:
		result["UserColourFailed"] = m.UserColourFailed
	case m.Document != nil:
		result["Document"] = m.Document
	case m.CommandResult != nil:
		result["CommandResult"] = m.CommandResult
	default:
		return nil, fmt.Errorf("protocol: empty ServerMsg")
	}
	return json.Marshal(result)
}

// UnmarshalJSON decodes whichever single tagged field is present.
func (m *ServerMsg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw["Welcome"] != nil:
		m.Welcome = new(WelcomeMsg)
		return json.Unmarshal(raw["Welcome"], m.Welcome)
	case raw["LoginFailed"] != nil:
		m.LoginFailed = new(LoginErrorMsg)
		return json.Unmarshal(raw["LoginFailed"], m.LoginFailed)
	case raw["Join"] != nil:
		m.Join = new(JoinMsg)
		return json.Unmarshal(raw["Join"], m.Join)
	case raw["Part"] != nil:
		m.Part = new(PartMsg)
		return json.Unmarshal(raw["Part"], m.Part)
	case raw["SyncInit"] != nil:
		m.SyncInit = new(SyncInitCountMsg)
		return json.Unmarshal(raw["SyncInit"], m.SyncInit)
	case raw["SyncUsertableUser"] != nil:
		m.SyncUsertableUser = new(SyncUsertableUserMsg)
		return json.Unmarshal(raw["SyncUsertableUser"], m.SyncUsertableUser)
	case raw["SyncDoclistDocument"] != nil:
		m.SyncDoclistDocument = new(SyncDoclistDocumentMsg)
		return json.Unmarshal(raw["SyncDoclistDocument"], m.SyncDoclistDocument)
	case raw["SyncFinal"] != nil:
		m.SyncFinal = &struct{}{}
		return nil
	case raw["DocumentCreate"] != nil:
		m.DocumentCreate = new(DocumentCreateMsg)
		return json.Unmarshal(raw["DocumentCreate"], m.DocumentCreate)
	case raw["DocumentRemove"] != nil:
		m.DocumentRemove = new(DocumentRemoveMsg)
		return json.Unmarshal(raw["DocumentRemove"], m.DocumentRemove)
	case raw["Message"] != nil:
		m.Message = new(ChatMsg)
		return json.Unmarshal(raw["Message"], m.Message)
	case raw["EmoteMessage"] != nil:
		m.EmoteMessage = new(ChatMsg)
		return json.Unmarshal(raw["EmoteMessage"], m.EmoteMessage)
	case raw["UserColour"] != nil:
		m.UserColour = new(UserColourMsg)
		return json.Unmarshal(raw["UserColour"], m.UserColour)
	case raw["UserColourFailed"] != nil:
		m.UserColourFailed = &struct{}{}
		return nil
	case raw["Document"] != nil:
		m.Document = new(DocumentEnvelope)
		return json.Unmarshal(raw["Document"], m.Document)
	case raw["CommandResult"] != nil:
		m.CommandResult = new(CommandResultMsg)
		return json.Unmarshal(raw["CommandResult"], m.CommandResult)
	}
	return fmt.Errorf("protocol: unrecognized ServerMsg: %s", data)
}
