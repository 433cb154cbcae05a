package ot

// Split is the internal product of a transform whose base operation had to
// be cut in two (an insertion landing in the middle of a delete range, for
// instance). It is never generated directly by a client.
type Split struct {
	First  Operation
	Second Operation
}

func (op Split) Apply(doc *Text, author AuthorID) {
	op.First.Apply(doc, author)
	op.First.Transform(op.Second).Apply(doc, author)
}

func (op Split) Clone() Operation {
	return Split{First: op.First.Clone(), Second: op.Second.Clone()}
}

// Reverse reverses both halves against the same snapshot of doc, mirroring
// how the original computes it: neither half observes the other's undo.
func (op Split) Reverse(doc *Text) Operation {
	return Split{First: op.First.Reverse(doc), Second: op.Second.Reverse(doc)}
}

func (op Split) Transform(base Operation) Operation {
	return op.First.Transform(op.Second.Transform(base))
}

func (op Split) kind() string { return "split" }

func (op Split) TransformInsert(pos int, text string) Operation {
	return Split{First: op.First.TransformInsert(pos, text), Second: op.Second.TransformInsert(pos, text)}
}

func (op Split) TransformDelete(pos, length int) Operation {
	return Split{First: op.First.TransformDelete(pos, length), Second: op.Second.TransformDelete(pos, length)}
}
