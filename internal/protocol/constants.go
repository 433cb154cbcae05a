package protocol

import "github.com/obbygo/obbygo/internal/model"

// ProtocolVersion is sent in Welcome. LoginMsg carries no version and the
// server never compares versions, so no login currently fails with
// LoginErrorProtocolVersionMismatch.
const ProtocolVersion uint32 = 1

// OwnerNone marks a document created by the server rather than a user.
const OwnerNone = model.OwnerNone

// Login error kinds, carried as the string payload of LoginErrorMsg.Kind.
const (
	LoginErrorNameInUse               = "NAME_IN_USE"
	LoginErrorColourInUse             = "COLOUR_IN_USE"
	LoginErrorWrongGlobalPassword     = "WRONG_GLOBAL_PASSWORD"
	LoginErrorWrongUserPassword       = "WRONG_USER_PASSWORD"
	LoginErrorProtocolVersionMismatch = "PROTOCOL_VERSION_MISMATCH"
	LoginErrorNotEncrypted            = "NOT_ENCRYPTED"
)

// CommandResult kinds.
const (
	CommandResultOK    = "ok"
	CommandResultError = "error"
)
