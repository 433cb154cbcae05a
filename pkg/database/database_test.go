package database

import (
	"testing"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/pkg/persist"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadSessionOnFreshDatabaseIsEmpty(t *testing.T) {
	db := openTestDB(t)
	s, err := db.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Users) != 0 || len(s.Documents) != 0 {
		t.Fatalf("expected an empty session, got %+v", s)
	}
}

func TestSaveThenLoadRoundTripsUsersAndChunkOrder(t *testing.T) {
	db := openTestDB(t)

	s := persist.Session{
		Version: persist.FormatVersion,
		Users: []persist.UserRecord{
			{ID: 1, Name: "alice", Colour: model.Colour{Red: 200, Green: 30, Blue: 30}},
			{ID: 2, Name: "bob", Colour: model.Colour{Red: 30, Green: 200, Blue: 30}},
		},
		Documents: []persist.DocumentRecord{
			{
				Owner: 1, ID: 1, Title: "notes", Encoding: "utf-8",
				Chunks: []persist.ChunkRecord{
					{Content: "hello ", Author: 1},
					{Content: "world", Author: 2},
					{Content: "!", Author: 1},
				},
			},
		},
	}

	if err := db.SaveSession(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := db.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(back.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(back.Users))
	}
	for i, u := range s.Users {
		if back.Users[i] != u {
			t.Fatalf("user %d mismatch: got %+v, want %+v", i, back.Users[i], u)
		}
	}

	if len(back.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(back.Documents))
	}
	doc := back.Documents[0]
	want := s.Documents[0]
	if doc.Owner != want.Owner || doc.ID != want.ID || doc.Title != want.Title || doc.Encoding != want.Encoding {
		t.Fatalf("document metadata mismatch: got %+v, want %+v", doc, want)
	}
	if len(doc.Chunks) != len(want.Chunks) {
		t.Fatalf("expected %d chunks in original order, got %d", len(want.Chunks), len(doc.Chunks))
	}
	for i, c := range want.Chunks {
		if doc.Chunks[i] != c {
			t.Fatalf("chunk %d mismatch: got %+v, want %+v", i, doc.Chunks[i], c)
		}
	}
}

func TestSaveSessionIsASnapshotNotAnAppend(t *testing.T) {
	db := openTestDB(t)

	first := persist.Session{
		Version: persist.FormatVersion,
		Users:   []persist.UserRecord{{ID: 1, Name: "alice", Colour: model.Colour{Red: 1, Green: 2, Blue: 3}}},
	}
	if err := db.SaveSession(first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := persist.Session{Version: persist.FormatVersion}
	if err := db.SaveSession(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	back, err := db.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(back.Users) != 0 {
		t.Fatalf("expected the second save to clear users entirely, got %+v", back.Users)
	}
}
