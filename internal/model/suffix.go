package model

// FindFreeSuffix returns the smallest positive integer not already used as
// a display suffix by another document sharing title. ignore, if non-nil,
// is excluded from the search — used when renaming a document back onto
// its own title shouldn't conflict with itself.
//
// Suffixes aren't stored: they're recomputed from the current document
// list whenever a title needs disambiguating, in ascending (owner, id)
// order, so every site converges on the same assignment from the same
// doclist.
func FindFreeSuffix(docs []*Document, title string, ignore *Document) int {
	return len(sharingTitle(docs, title, ignore)) + 1
}

func sharingTitle(docs []*Document, title string, ignore *Document) []*Document {
	var out []*Document
	for _, d := range docs {
		if d == ignore {
			continue
		}
		if d.Title == title {
			out = append(out, d)
		}
	}
	return out
}
