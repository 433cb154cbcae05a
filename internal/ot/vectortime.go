package ot

// VectorTime is the two-counter timestamp exchanged with every Record.
// Local counts operations this site has generated on the pair; Remote
// counts operations this site has applied from the peer.
type VectorTime struct {
	Local  uint32
	Remote uint32
}

// Equal reports whether both counters match.
func (v VectorTime) Equal(other VectorTime) bool {
	return v.Local == other.Local && v.Remote == other.Remote
}

func (v VectorTime) incLocal() VectorTime {
	v.Local++
	return v
}

func (v VectorTime) incRemote() VectorTime {
	v.Remote++
	return v
}
