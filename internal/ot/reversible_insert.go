package ot

// ReversibleInsert is the product of Delete.Reverse: it reinserts a span of
// text that may have been written by several authors, restoring the
// original per-character attribution rather than assigning the whole span
// to whoever triggers the undo.
type ReversibleInsert struct {
	Pos      int
	Authored *Text
}

func (op ReversibleInsert) Apply(doc *Text, _ AuthorID) {
	doc.InsertText(op.Pos, op.Authored)
}

func (op ReversibleInsert) Clone() Operation {
	return ReversibleInsert{Pos: op.Pos, Authored: op.Authored.Clone()}
}

func (op ReversibleInsert) Reverse(*Text) Operation {
	return Delete{Pos: op.Pos, Len: op.Authored.Length()}
}

func (op ReversibleInsert) Transform(base Operation) Operation {
	return base.TransformInsert(op.Pos, op.Authored.String())
}

func (op ReversibleInsert) kind() string { return "reversible_insert" }

// TransformInsert mirrors Insert's rule: ReversibleInsert behaves exactly
// like a plain insert of its flattened text for positional purposes, only
// carrying richer authorship through Apply.
func (op ReversibleInsert) TransformInsert(pos int, text string) Operation {
	content := op.Authored.String()
	switch {
	case pos < op.Pos:
		return ReversibleInsert{Pos: op.Pos + len(text), Authored: op.Authored.Clone()}
	case pos > op.Pos:
		return op.Clone()
	default:
		if content > text {
			return op.Clone()
		}
		return ReversibleInsert{Pos: op.Pos + len(text), Authored: op.Authored.Clone()}
	}
}

func (op ReversibleInsert) TransformDelete(pos, length int) Operation {
	switch {
	case op.Pos <= pos:
		return op.Clone()
	case op.Pos > pos+length:
		return ReversibleInsert{Pos: op.Pos - length, Authored: op.Authored.Clone()}
	default:
		return ReversibleInsert{Pos: pos, Authored: op.Authored.Clone()}
	}
}
