package ot

import "errors"

// ErrJupiterProtocol is returned when a Record violates one of the Jupiter
// preconditions: it is fatal for the pair that raised it.
var ErrJupiterProtocol = errors.New("jupiter: protocol precondition violated")

// ErrBadRange names an out-of-bounds text or operation position. Text and
// the operations do not check bounds, and no function in this package
// returns it.
var ErrBadRange = errors.New("ot: operation out of document bounds")
