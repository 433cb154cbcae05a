// Package ot implements the document text model and the Jupiter-style
// operational-transformation engine: authored text chunks, the operation
// algebra (insert/delete/split/noop/reversible-insert), vector time, and
// the per-pair transformation engine that keeps peers converged.
package ot

import "strings"

// AuthorID identifies the user who wrote a piece of text. Zero means no
// known author (system-authored or loaded without attribution), mirroring
// the owner_id=0 "server created" convention used for documents.
type AuthorID = uint32

// NoAuthor is the sentinel AuthorID for unattributed text.
const NoAuthor AuthorID = 0

// DefaultMaxChunk is the soft cap on a single chunk's byte length. It keeps
// single-author runs from growing unboundedly; it is not a hard document
// size limit.
const DefaultMaxChunk = 16 * 1024

// Chunk is a maximal run of text sharing one author.
type Chunk struct {
	Text   string
	Author AuthorID
}

func (c Chunk) empty() bool { return len(c.Text) == 0 }

// Text is an ordered sequence of authored chunks. Concatenating the chunks'
// text in order always equals the document content.
type Text struct {
	chunks   []Chunk
	maxChunk int
}

// NewText creates an empty text with the given soft per-chunk byte cap.
// A maxChunk of 0 selects DefaultMaxChunk.
func NewText(maxChunk int) *Text {
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	return &Text{maxChunk: maxChunk}
}

// NewTextFromString creates a text consisting of a single authored chunk.
func NewTextFromString(s string, author AuthorID, maxChunk int) *Text {
	t := NewText(maxChunk)
	if s != "" {
		t.chunks = append(t.chunks, Chunk{Text: s, Author: author})
	}
	return t
}

// NewTextFromChunks creates a text from an already-authored chunk sequence,
// as read back from a persisted session where each chunk carried its own
// author.
func NewTextFromChunks(chunks []Chunk, maxChunk int) *Text {
	t := NewText(maxChunk)
	t.chunks = append(t.chunks, chunks...)
	t.dropEmpty()
	return t
}

// Clone returns a deep copy of the text.
func (t *Text) Clone() *Text {
	out := &Text{maxChunk: t.maxChunk, chunks: make([]Chunk, len(t.chunks))}
	copy(out.chunks, t.chunks)
	return out
}

// Length returns the total byte length of the text.
func (t *Text) Length() int {
	n := 0
	for _, c := range t.chunks {
		n += len(c.Text)
	}
	return n
}

// String concatenates all chunks into the plain document content.
func (t *Text) String() string {
	var b strings.Builder
	for _, c := range t.chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// ChunkIter returns a copy of the chunk list for read-only iteration.
func (t *Text) ChunkIter() []Chunk {
	out := make([]Chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

// locate finds the chunk index containing byte offset pos and the offset
// within that chunk. A pos on a chunk boundary resolves to the end of the
// earlier chunk, so pos == Length() yields the last chunk with offset equal
// to its length. An index one past the last chunk is returned only when the
// text is empty or pos lies beyond its end.
func (t *Text) locate(pos int) (idx, offset int) {
	walked := 0
	for i, c := range t.chunks {
		if pos <= walked+len(c.Text) {
			return i, pos - walked
		}
		walked += len(c.Text)
	}
	return len(t.chunks), 0
}

func (t *Text) compact(at int) {
	// Try to merge chunk at index `at` with its neighbours if same author
	// and the merged length still fits under maxChunk. Drops empty chunks.
	t.dropEmpty()
	if at < 0 {
		at = 0
	}
	for at > 0 && at < len(t.chunks) {
		prev, cur := t.chunks[at-1], t.chunks[at]
		if prev.Author == cur.Author && len(prev.Text)+len(cur.Text) <= t.maxChunk {
			t.chunks[at-1].Text = prev.Text + cur.Text
			t.chunks = append(t.chunks[:at], t.chunks[at+1:]...)
			at--
			continue
		}
		break
	}
}

func (t *Text) dropEmpty() {
	out := t.chunks[:0]
	for _, c := range t.chunks {
		if !c.empty() {
			out = append(out, c)
		}
	}
	t.chunks = out
}

// Insert inserts str, authored by author, at byte position pos.
//
// The target chunk is grown in place when it already belongs to author and
// would stay under the soft cap; otherwise the chunk is split and a new
// chunk is spliced in, attempting to merge with either neighbour.
func (t *Text) Insert(pos int, str string, author AuthorID) {
	if str == "" {
		return
	}
	idx, offset := t.locate(pos)

	if idx < len(t.chunks) {
		c := &t.chunks[idx]
		if offset > 0 && offset < len(c.Text) {
			// Mid-chunk insert.
			if c.Author == author && len(c.Text)+len(str) <= t.maxChunk {
				c.Text = c.Text[:offset] + str + c.Text[offset:]
				return
			}
			// Split the chunk and splice the new one between the halves.
			before := Chunk{Text: c.Text[:offset], Author: c.Author}
			after := Chunk{Text: c.Text[offset:], Author: c.Author}
			newChunk := Chunk{Text: str, Author: author}
			t.chunks = append(t.chunks[:idx], append([]Chunk{before, newChunk, after}, t.chunks[idx+1:]...)...)
			t.compact(idx + 1)
			t.compact(idx + 2)
			return
		}
		if offset == len(c.Text) {
			// Boundary between chunk idx and idx+1.
			if c.Author == author && len(c.Text)+len(str) <= t.maxChunk {
				c.Text += str
				return
			}
			if idx+1 < len(t.chunks) {
				next := &t.chunks[idx+1]
				if next.Author == author && len(next.Text)+len(str) <= t.maxChunk {
					next.Text = str + next.Text
					return
				}
			}
			t.chunks = append(t.chunks[:idx+1], append([]Chunk{{Text: str, Author: author}}, t.chunks[idx+1:]...)...)
			return
		}
		// offset == 0, idx points at the chunk we insert before.
		if c.Author == author && len(c.Text)+len(str) <= t.maxChunk {
			c.Text = str + c.Text
			return
		}
		if idx > 0 {
			prev := &t.chunks[idx-1]
			if prev.Author == author && len(prev.Text)+len(str) <= t.maxChunk {
				prev.Text += str
				return
			}
		}
		t.chunks = append(t.chunks[:idx], append([]Chunk{{Text: str, Author: author}}, t.chunks[idx:]...)...)
		return
	}

	// Append at the end (pos == Length()).
	if n := len(t.chunks); n > 0 {
		last := &t.chunks[n-1]
		if last.Author == author && len(last.Text)+len(str) <= t.maxChunk {
			last.Text += str
			return
		}
	}
	t.chunks = append(t.chunks, Chunk{Text: str, Author: author})
}

// InsertText inserts another Text at pos, preserving the authorship of its
// chunks.
func (t *Text) InsertText(pos int, other *Text) {
	for _, c := range other.chunks {
		t.Insert(pos, c.Text, c.Author)
		pos += len(c.Text)
	}
}

// Erase removes len bytes starting at pos. Erasing zero length is a no-op.
// Panics (via explicit bounds check returning false) is avoided; callers
// must ensure pos+len <= Length(), as this is a boundary-policy error per
// the text model invariants, not a recoverable runtime condition here.
func (t *Text) Erase(pos, length int) {
	if length == 0 {
		return
	}
	end := pos + length
	startIdx, startOff := t.locate(pos)
	walked := 0
	for i := 0; i < startIdx; i++ {
		walked += len(t.chunks[i].Text)
	}

	out := make([]Chunk, 0, len(t.chunks))
	out = append(out, t.chunks[:startIdx]...)

	for i := startIdx; i < len(t.chunks); i++ {
		c := t.chunks[i]
		chunkStart := walked
		chunkEnd := walked + len(c.Text)
		walked = chunkEnd

		if chunkEnd <= pos {
			out = append(out, c)
			continue
		}
		if chunkStart >= end {
			out = append(out, t.chunks[i:]...)
			break
		}

		localStart := 0
		if chunkStart < pos {
			localStart = pos - chunkStart
		}
		localEnd := len(c.Text)
		if chunkEnd > end {
			localEnd = end - chunkStart
		}
		remaining := c.Text[:localStart] + c.Text[localEnd:]
		if remaining != "" {
			out = append(out, Chunk{Text: remaining, Author: c.Author})
		}
	}

	_ = startOff
	t.chunks = out
	t.compact(startIdx)
}

// Substr extracts the subtext starting at pos with the given byte length,
// preserving chunk boundaries and authorship.
func (t *Text) Substr(pos, length int) *Text {
	out := NewText(t.maxChunk)
	end := pos + length
	walked := 0
	for _, c := range t.chunks {
		chunkStart := walked
		chunkEnd := walked + len(c.Text)
		walked = chunkEnd
		if chunkEnd <= pos || chunkStart >= end {
			continue
		}
		localStart := 0
		if chunkStart < pos {
			localStart = pos - chunkStart
		}
		localEnd := len(c.Text)
		if chunkEnd > end {
			localEnd = end - chunkStart
		}
		piece := c.Text[localStart:localEnd]
		if piece != "" {
			out.chunks = append(out.chunks, Chunk{Text: piece, Author: c.Author})
		}
	}
	return out
}

// Append adds str authored by author to the end of the text.
func (t *Text) Append(str string, author AuthorID) {
	t.Insert(t.Length(), str, author)
}

// Prepend adds str authored by author to the start of the text.
func (t *Text) Prepend(str string, author AuthorID) {
	t.Insert(0, str, author)
}

// EqualContent reports whether two texts have identical content, ignoring
// authorship.
func (t *Text) EqualContent(other *Text) bool {
	return t.String() == other.String()
}

// Equal reports whether two texts have identical content AND, chunk for
// chunk, identical authorship.
func (t *Text) Equal(other *Text) bool {
	if len(t.chunks) != len(other.chunks) {
		return t.EqualContent(other) && t.Length() == 0
	}
	for i := range t.chunks {
		if t.chunks[i] != other.chunks[i] {
			return false
		}
	}
	return true
}

// Compare returns a negative, zero, or positive value comparing the two
// texts' content lexicographically (authorship is ignored).
func (t *Text) Compare(other *Text) int {
	return strings.Compare(t.String(), other.String())
}
