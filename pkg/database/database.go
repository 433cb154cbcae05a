// Package database provides SQLite-backed persistence for a whole
// session: the user table, every document's metadata, and its content as
// authored chunks. One saved session is the durable counterpart of the
// `.obby` export/import format in pkg/persist, stored relationally instead
// of as a single text blob so a running server can load or checkpoint
// without ever materialising the whole thing in memory as text.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/obbygo/obbygo/pkg/persist"
)

// Database wraps a SQLite connection holding one session's durable state.
type Database struct {
	db *sql.DB
}

// New creates a new database connection and runs migrations.
func New(uri string) (*Database, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// SaveSession replaces the database's whole persisted state with s. Chat
// history is never written, since it stays out of scope, but earlier
// saves' chat rows are still cleared so a save is a true snapshot, not an
// append.
func (d *Database) SaveSession(s persist.Session) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM document_chunks",
		"DELETE FROM documents",
		"DELETE FROM users",
		"DELETE FROM chat_messages",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}

	for _, u := range s.Users {
		_, err := tx.Exec(
			"INSERT INTO users (id, name, red, green, blue) VALUES (?, ?, ?, ?, ?)",
			u.ID, u.Name, u.Colour.Red, u.Colour.Green, u.Colour.Blue,
		)
		if err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}

	for _, doc := range s.Documents {
		_, err := tx.Exec(
			"INSERT INTO documents (owner, id, title, encoding) VALUES (?, ?, ?, ?)",
			doc.Owner, doc.ID, doc.Title, doc.Encoding,
		)
		if err != nil {
			return fmt.Errorf("insert document (%d,%d): %w", doc.Owner, doc.ID, err)
		}
		for seq, chunk := range doc.Chunks {
			_, err := tx.Exec(
				"INSERT INTO document_chunks (owner, doc_id, seq, content, author) VALUES (?, ?, ?, ?, ?)",
				doc.Owner, doc.ID, seq, chunk.Content, chunk.Author,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d of document (%d,%d): %w", seq, doc.Owner, doc.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSession reads back the whole persisted session. An empty database
// (no users, no documents) is not an error: it's the state of a
// freshly-migrated, never-saved database.
func (d *Database) LoadSession() (persist.Session, error) {
	s := persist.Session{Version: persist.FormatVersion}

	userRows, err := d.db.Query("SELECT id, name, red, green, blue FROM users ORDER BY id")
	if err != nil {
		return persist.Session{}, fmt.Errorf("query users: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var u persist.UserRecord
		if err := userRows.Scan(&u.ID, &u.Name, &u.Colour.Red, &u.Colour.Green, &u.Colour.Blue); err != nil {
			return persist.Session{}, fmt.Errorf("scan user: %w", err)
		}
		s.Users = append(s.Users, u)
	}
	if err := userRows.Err(); err != nil {
		return persist.Session{}, fmt.Errorf("iterate users: %w", err)
	}

	docRows, err := d.db.Query("SELECT owner, id, title, encoding FROM documents ORDER BY owner, id")
	if err != nil {
		return persist.Session{}, fmt.Errorf("query documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var doc persist.DocumentRecord
		if err := docRows.Scan(&doc.Owner, &doc.ID, &doc.Title, &doc.Encoding); err != nil {
			return persist.Session{}, fmt.Errorf("scan document: %w", err)
		}
		doc.Chunks, err = d.loadChunks(doc.Owner, doc.ID)
		if err != nil {
			return persist.Session{}, err
		}
		s.Documents = append(s.Documents, doc)
	}
	if err := docRows.Err(); err != nil {
		return persist.Session{}, fmt.Errorf("iterate documents: %w", err)
	}

	return s, nil
}

func (d *Database) loadChunks(owner, id uint32) ([]persist.ChunkRecord, error) {
	rows, err := d.db.Query(
		"SELECT content, author FROM document_chunks WHERE owner = ? AND doc_id = ? ORDER BY seq",
		owner, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks for document (%d,%d): %w", owner, id, err)
	}
	defer rows.Close()

	var chunks []persist.ChunkRecord
	for rows.Next() {
		var c persist.ChunkRecord
		if err := rows.Scan(&c.Content, &c.Author); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
