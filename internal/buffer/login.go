package buffer

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/protocol"
)

// LoginError is the typed failure returned by Buffer.Login: its Kind is one
// of the protocol.LoginError* constants and travels to the client verbatim
// as a LoginErrorMsg. Colour conflicts, name conflicts, and wrong-password
// errors are all recoverable: the caller may re-prompt and retry the same
// connection.
type LoginError struct {
	Kind string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("buffer: login failed: %s", e.Kind)
}

// ServerIdentity is the server-wide RSA keypair answered in every
// connection's welcome packet, and used to decrypt user_password requests.
// It is shared across connections; only the per-connection token differs.
type ServerIdentity struct {
	key *rsa.PrivateKey
}

// NewServerIdentity generates a fresh 2048-bit RSA keypair.
func NewServerIdentity() (*ServerIdentity, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("buffer: generate server key: %w", err)
	}
	return &ServerIdentity{key: key}, nil
}

// PublicKey returns the identity's public half, sent to clients on welcome.
func (id *ServerIdentity) PublicKey() *rsa.PublicKey { return &id.key.PublicKey }

// Decrypt recovers the plaintext behind an RSA-OAEP-encrypted password
// change, as sent in a UserPasswordMsg.
func (id *ServerIdentity) Decrypt(ciphertext []byte) (string, error) {
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, id.key, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("buffer: decrypt password: %w", err)
	}
	return string(plain), nil
}

// NewConnectionToken returns a fresh per-connection token to be sent in
// welcome and mixed into every password hash the client computes for this
// connection, so a captured hash can't be replayed against a later one.
func NewConnectionToken() string {
	return uuid.NewString()
}

// HashPassword computes SHA1(token || password) in lowercase hex, the
// exact form carried in LoginMsg.GlobalPasswordHash/UserPasswordHash.
func HashPassword(token, password string) string {
	sum := sha1.Sum([]byte(token + password))
	return hex.EncodeToString(sum[:])
}

// Welcome builds the welcome packet for a freshly accepted connection.
func Welcome(pub *rsa.PublicKey, token string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		ProtocolVersion:  protocol.ProtocolVersion,
		Token:            token,
		ServerPublicKeyN: pub.N.Text(16),
		ServerPublicKeyE: strconv.FormatInt(int64(pub.E), 16),
	}
}

// Login validates a login attempt against the user table and returns the
// resulting user: a brand-new connected user, or a reconnecting one whose
// identity (and edit history attribution) is preserved from before it
// disconnected. token is this connection's welcome token; globalPassword,
// if non-empty, is the server-wide password required of every login.
//
// A reconnecting user's stored password is kept as plaintext rather than a
// one-way hash: the server must be able to recompute SHA1(token||password)
// fresh for every connection's distinct token, which a one-way hash of the
// password alone can't do.
func (b *Buffer) Login(token, globalPassword string, msg protocol.LoginMsg) (*model.User, *LoginError) {
	if existing, ok := b.Users.FindByName(msg.Name); ok && existing.Connected {
		return nil, &LoginError{Kind: protocol.LoginErrorNameInUse}
	}

	if globalPassword != "" && msg.GlobalPasswordHash != HashPassword(token, globalPassword) {
		return nil, &LoginError{Kind: protocol.LoginErrorWrongGlobalPassword}
	}

	existing, reconnecting := b.Users.FindByName(msg.Name)
	if reconnecting && len(existing.PasswordHash) > 0 {
		expected := HashPassword(token, string(existing.PasswordHash))
		if msg.UserPasswordHash != expected {
			return nil, &LoginError{Kind: protocol.LoginErrorWrongUserPassword}
		}
	}

	if b.Users.ColourInUse(msg.Colour) {
		return nil, &LoginError{Kind: protocol.LoginErrorColourInUse}
	}

	if reconnecting {
		user, ok := b.Users.Reconnect(existing.ID, msg.Colour)
		if !ok {
			// Lost the race with another reconnect attempt between the
			// FindByName above and here; treat it like a fresh name
			// conflict rather than panicking.
			return nil, &LoginError{Kind: protocol.LoginErrorNameInUse}
		}
		return user, nil
	}

	return b.Users.AddConnected(msg.Name, msg.Colour), nil
}

// SetUserPassword stores a user's new password, decrypted from the
// RSA-OAEP ciphertext carried in a UserPasswordMsg.
func (b *Buffer) SetUserPassword(id *ServerIdentity, user *model.User, msg protocol.UserPasswordMsg) error {
	plain, err := id.Decrypt(msg.EncryptedPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = []byte(plain)
	return nil
}
