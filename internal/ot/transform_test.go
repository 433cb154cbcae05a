package ot

import "testing"

// converge applies a then b-after-a to one copy of base, and b then
// a-after-b to another, and returns both final strings: TP1 requires they
// always match regardless of which operation a site saw first.
func converge(t *testing.T, base string, a, b Operation) (string, string) {
	t.Helper()

	docA := NewTextFromString(base, NoAuthor, 0)
	a.Apply(docA, 1)
	bAfterA := a.Transform(b)
	bAfterA.Apply(docA, 2)

	docB := NewTextFromString(base, NoAuthor, 0)
	b.Apply(docB, 2)
	aAfterB := b.Transform(a)
	aAfterB.Apply(docB, 1)

	return docA.String(), docB.String()
}

func assertConverge(t *testing.T, base string, a, b Operation) string {
	t.Helper()
	resA, resB := converge(t, base, a, b)
	if resA != resB {
		t.Fatalf("TP1 violated on base %q: a-first=%q b-first=%q", base, resA, resB)
	}
	return resA
}

func TestConvergeRaceOnInsert(t *testing.T) {
	// Two sites concurrently insert a single character at the same
	// position. "L" > "H" lexicographically, so "L" keeps position 0 and
	// "H" shifts after it, regardless of which site applies which first.
	got := assertConverge(t, "obby", Insert{Pos: 0, Text: "H"}, Insert{Pos: 0, Text: "L"})
	if got != "LHobby" {
		t.Fatalf("expected \"LHobby\", got %q", got)
	}
}

func TestConvergeInsertInsideDelete(t *testing.T) {
	// One site deletes "bcde" from "abcdef" while the other inserts "X"
	// between "c" and "d", strictly inside the deleted range; the insert
	// must survive as ordinary text.
	got := assertConverge(t, "abcdef", Delete{Pos: 1, Len: 4}, Insert{Pos: 3, Text: "X"})
	if got != "aXf" {
		t.Fatalf("expected insert-inside-delete to survive as \"aXf\", got %q", got)
	}
}

func TestConvergeOverlappingDeletes(t *testing.T) {
	// "abch" with two overlapping deletes: [1,3) removes "bc", [2,4) removes "ch".
	got := assertConverge(t, "abch", Delete{Pos: 1, Len: 2}, Delete{Pos: 2, Len: 2})
	if got != "a" {
		t.Fatalf("expected overlapping deletes to leave \"a\", got %q", got)
	}
}

func TestConvergeDisjointInsertsAndDeletes(t *testing.T) {
	assertConverge(t, "hello world", Insert{Pos: 0, Text: ">>"}, Delete{Pos: 6, Len: 5})
	assertConverge(t, "hello world", Delete{Pos: 0, Len: 5}, Insert{Pos: 11, Text: "!"})
	assertConverge(t, "hello world", Insert{Pos: 5, Text: ","}, Insert{Pos: 5, Text: ";"})
}

func TestConvergeDeleteFullyCoversOtherDelete(t *testing.T) {
	got := assertConverge(t, "abcdef", Delete{Pos: 0, Len: 6}, Delete{Pos: 2, Len: 2})
	if got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
}

func TestSplitProducingTransformConverges(t *testing.T) {
	// Delete{1,3} against Insert{2, "XY"} forces a Split; confirm the pair
	// still converges under the chosen Split.Transform composition order.
	assertConverge(t, "abcdef", Delete{Pos: 1, Len: 3}, Insert{Pos: 2, Text: "XY"})
}

func TestReverseRoundTrip(t *testing.T) {
	doc := NewTextFromString("hello world", 1, 0)
	del := Delete{Pos: 5, Len: 6}
	reinsert := del.Reverse(doc)

	del.Apply(doc, NoAuthor)
	if doc.String() != "hello" {
		t.Fatalf("after delete: %q", doc.String())
	}
	reinsert.Apply(doc, NoAuthor)
	if doc.String() != "hello world" {
		t.Fatalf("after reverse: %q", doc.String())
	}
	for _, c := range doc.ChunkIter() {
		if c.Author != 1 {
			t.Fatalf("reversed insert lost original authorship: %+v", doc.ChunkIter())
		}
	}
}

func TestInsertReverseIsDelete(t *testing.T) {
	doc := NewTextFromString("hello", NoAuthor, 0)
	ins := Insert{Pos: 5, Text: " world"}
	ins.Apply(doc, 3)
	rev := ins.Reverse(doc)
	rev.Apply(doc, NoAuthor)
	if doc.String() != "hello" {
		t.Fatalf("insert/reverse round trip failed: %q", doc.String())
	}
}

// TestReverseDeleteRestoresMixedAuthorship exercises reversible_insert's
// whole point: "foobar" with "foo" from U1 and "bar" from U2, deleting
// across the authorship boundary and reversing it, restores not just the
// text but each character's original author.
func TestReverseDeleteRestoresMixedAuthorship(t *testing.T) {
	const u1, u2 AuthorID = 1, 2
	doc := NewTextFromChunks([]Chunk{
		{Text: "foo", Author: u1},
		{Text: "bar", Author: u2},
	}, 0)

	del := Delete{Pos: 1, Len: 4}
	reinsert := del.Reverse(doc)

	del.Apply(doc, NoAuthor)
	if doc.String() != "fr" {
		t.Fatalf("after delete: %q", doc.String())
	}

	reinsert.Apply(doc, NoAuthor)
	if doc.String() != "foobar" {
		t.Fatalf("after reverse: %q", doc.String())
	}

	wantAuthor := map[int]AuthorID{0: u1, 1: u1, 2: u1, 3: u2, 4: u2, 5: u2}
	pos := 0
	for _, c := range doc.ChunkIter() {
		for range c.Text {
			if c.Author != wantAuthor[pos] {
				t.Fatalf("position %d: expected author %d, got %d (chunks=%+v)", pos, wantAuthor[pos], c.Author, doc.ChunkIter())
			}
			pos++
		}
	}
}
