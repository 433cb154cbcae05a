package ot

import "testing"

func TestTextInsertAppend(t *testing.T) {
	txt := NewText(0)
	txt.Insert(0, "hello", 1)
	txt.Insert(5, " world", 2)
	if got := txt.String(); got != "hello world" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTextInsertMidChunkSplitsAuthorship(t *testing.T) {
	txt := NewTextFromString("hello", 1, 0)
	txt.Insert(2, "XX", 2)
	if got := txt.String(); got != "heXXllo" {
		t.Fatalf("String() = %q", got)
	}
	chunks := txt.ChunkIter()
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Author != 1 || chunks[1].Author != 2 || chunks[2].Author != 1 {
		t.Fatalf("unexpected authorship: %+v", chunks)
	}
}

func TestTextSameAuthorMerges(t *testing.T) {
	txt := NewText(0)
	txt.Insert(0, "abc", 1)
	txt.Insert(3, "def", 1)
	chunks := txt.ChunkIter()
	if len(chunks) != 1 {
		t.Fatalf("expected same-author chunks to merge, got %+v", chunks)
	}
}

func TestTextEraseAcrossChunks(t *testing.T) {
	txt := NewText(0)
	txt.Insert(0, "abc", 1)
	txt.Insert(3, "def", 2)
	txt.Erase(2, 2)
	if got := txt.String(); got != "abef" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTextSubstrPreservesAuthorship(t *testing.T) {
	txt := NewText(0)
	txt.Insert(0, "abc", 1)
	txt.Insert(3, "def", 2)
	sub := txt.Substr(2, 2)
	if sub.String() != "cd" {
		t.Fatalf("Substr content = %q", sub.String())
	}
	chunks := sub.ChunkIter()
	if len(chunks) != 2 || chunks[0].Author != 1 || chunks[1].Author != 2 {
		t.Fatalf("Substr authorship not preserved: %+v", chunks)
	}
}

func TestTextInsertTextRestoresAuthorship(t *testing.T) {
	doc := NewTextFromString("af", 1, 0)
	captured := NewText(0)
	captured.Insert(0, "X", 7)
	doc.InsertText(1, captured)
	if doc.String() != "aXf" {
		t.Fatalf("String() = %q", doc.String())
	}
	chunks := doc.ChunkIter()
	if chunks[1].Author != 7 {
		t.Fatalf("authorship lost on reinsert: %+v", chunks)
	}
}
