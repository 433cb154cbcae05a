// Package model holds the session's identity and document bookkeeping:
// users, their colours, the user table, documents, and the title-suffix
// helper used when two documents share a display name.
package model

import "math"

// Colour is an RGB triple in [0,255]^3.
type Colour struct {
	Red, Green, Blue uint8
}

// similarityThreshold is the Euclidean distance under which two colours are
// considered a login conflict.
const similarityThreshold = 32.0

// SimilarTo reports whether c and other are close enough in RGB space to
// be rejected as a colour collision at login.
func (c Colour) SimilarTo(other Colour) bool {
	dr := float64(int(c.Red) - int(other.Red))
	dg := float64(int(c.Green) - int(other.Green))
	db := float64(int(c.Blue) - int(other.Blue))
	dist := math.Sqrt(dr*dr + dg*dg + db*db)
	return dist < similarityThreshold
}

func (c Colour) Equal(other Colour) bool {
	return c.Red == other.Red && c.Green == other.Green && c.Blue == other.Blue
}
