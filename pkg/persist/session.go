// Package persist implements the `.obby` line-oriented session format:
// read and write a whole session (user table, chat, and every document's
// authored content) to a single portable text blob.
package persist

import (
	"strconv"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

const header = "!obby"

// FormatVersion is written into the root session object's version
// attribute and checked on load.
const FormatVersion = 1

// UserRecord is one persisted user-table row.
type UserRecord struct {
	ID     model.UserID
	Name   string
	Colour model.Colour
}

// ChunkRecord is one authored run of a document's content.
type ChunkRecord struct {
	Content string
	Author  model.UserID
}

// DocumentRecord is one persisted document: metadata plus its content as
// authored chunks, in order.
type DocumentRecord struct {
	Owner    model.UserID
	ID       model.DocumentID
	Title    string
	Encoding string
	Chunks   []ChunkRecord
}

// Session is everything a save/load cycle round-trips.
type Session struct {
	Version   uint32
	Users     []UserRecord
	Documents []DocumentRecord
}

// FromDocument converts a live document's text into its persisted chunk
// form, for callers building a Session to save.
func FromDocument(d *model.Document) DocumentRecord {
	rec := DocumentRecord{Owner: d.Owner, ID: d.ID, Title: d.Title, Encoding: d.Encoding}
	if d.Text != nil {
		for _, c := range d.Text.ChunkIter() {
			rec.Chunks = append(rec.Chunks, ChunkRecord{Content: c.Text, Author: c.Author})
		}
	}
	return rec
}

// Text rebuilds an *ot.Text from a loaded document's chunks.
func (d DocumentRecord) Text(maxChunk int) *ot.Text {
	chunks := make([]ot.Chunk, len(d.Chunks))
	for i, c := range d.Chunks {
		chunks[i] = ot.Chunk{Text: c.Content, Author: c.Author}
	}
	return ot.NewTextFromChunks(chunks, maxChunk)
}

// Marshal renders a Session as `.obby` text: a header line, then the
// session object and its user_table/chat/document children.
func Marshal(s Session) string {
	root := newObject("session", 0)
	root.setAttr("version", strconv.FormatUint(uint64(s.Version), 10))

	userTable := root.addChild("user_table")
	for _, u := range s.Users {
		uo := userTable.addChild("user")
		uo.setAttr("id", strconv.FormatUint(uint64(u.ID), 10))
		uo.setAttr("name", u.Name)
		uo.setAttr("red", strconv.Itoa(int(u.Colour.Red)))
		uo.setAttr("green", strconv.Itoa(int(u.Colour.Green)))
		uo.setAttr("blue", strconv.Itoa(int(u.Colour.Blue)))
	}

	// Chat history is out of scope: the child is present, per format, but
	// always empty.
	root.addChild("chat")

	for _, d := range s.Documents {
		do := root.addChild("document")
		do.setAttr("owner", strconv.FormatUint(uint64(d.Owner), 10))
		do.setAttr("id", strconv.FormatUint(uint64(d.ID), 10))
		do.setAttr("title", d.Title)
		do.setAttr("encoding", d.Encoding)
		for _, c := range d.Chunks {
			co := do.addChild("chunk")
			co.setAttr("content", c.Content)
			co.setAttr("author", strconv.FormatUint(uint64(c.Author), 10))
		}
	}

	var toks []token
	toks = append(toks, token{kind: tokExclamation, text: "!"}, token{kind: tokIdentifier, text: "obby"})
	toks = append(toks, token{kind: tokIndentation, text: ""})
	root.serialise(&toks)
	return detokenise(toks)
}

// Unmarshal parses `.obby` text into a Session, returning a *SerialiseError
// with a 1-based line number on any malformed input.
func Unmarshal(data string) (Session, error) {
	toks, err := tokenise(data)
	if err != nil {
		return Session{}, err
	}
	if len(toks) < 2 || toks[0].kind != tokExclamation || toks[1].text != header[1:] {
		return Session{}, errAt(1, "missing %q header", header)
	}

	pos := 2
	if pos >= len(toks) || toks[pos].kind != tokIndentation {
		return Session{}, errAt(1, "expected session object after header")
	}
	pos++

	root, err := deserialiseObject(toks, &pos, 0)
	if err != nil {
		return Session{}, err
	}
	if root.name != "session" {
		return Session{}, errAt(root.line, "expected root object named \"session\", got %q", root.name)
	}

	versionStr, err := root.requireAttr("version")
	if err != nil {
		return Session{}, err
	}
	version, convErr := strconv.ParseUint(versionStr, 10, 32)
	if convErr != nil {
		return Session{}, errAt(root.line, "invalid version %q", versionStr)
	}
	if version != FormatVersion {
		return Session{}, errAt(root.line, "unsupported version %q", versionStr)
	}

	s := Session{Version: uint32(version)}

	if userTable, ok := root.firstChildNamed("user_table"); ok {
		for _, uo := range userTable.childrenNamed("user") {
			rec, err := parseUser(uo)
			if err != nil {
				return Session{}, err
			}
			s.Users = append(s.Users, rec)
		}
	}

	for _, do := range root.childrenNamed("document") {
		rec, err := parseDocument(do)
		if err != nil {
			return Session{}, err
		}
		s.Documents = append(s.Documents, rec)
	}

	return s, nil
}

func parseUser(o *object) (UserRecord, error) {
	id, err := parseUintAttr(o, "id")
	if err != nil {
		return UserRecord{}, err
	}
	name, err := o.requireAttr("name")
	if err != nil {
		return UserRecord{}, err
	}
	red, err := parseByteAttr(o, "red")
	if err != nil {
		return UserRecord{}, err
	}
	green, err := parseByteAttr(o, "green")
	if err != nil {
		return UserRecord{}, err
	}
	blue, err := parseByteAttr(o, "blue")
	if err != nil {
		return UserRecord{}, err
	}
	return UserRecord{
		ID:     model.UserID(id),
		Name:   name,
		Colour: model.Colour{Red: red, Green: green, Blue: blue},
	}, nil
}

func parseDocument(o *object) (DocumentRecord, error) {
	owner, err := parseUintAttr(o, "owner")
	if err != nil {
		return DocumentRecord{}, err
	}
	id, err := parseUintAttr(o, "id")
	if err != nil {
		return DocumentRecord{}, err
	}
	title, err := o.requireAttr("title")
	if err != nil {
		return DocumentRecord{}, err
	}
	encoding, err := o.requireAttr("encoding")
	if err != nil {
		return DocumentRecord{}, err
	}

	rec := DocumentRecord{
		Owner:    model.UserID(owner),
		ID:       model.DocumentID(id),
		Title:    title,
		Encoding: encoding,
	}
	for _, co := range o.childrenNamed("chunk") {
		content, err := co.requireAttr("content")
		if err != nil {
			return DocumentRecord{}, err
		}
		author, err := parseUintAttr(co, "author")
		if err != nil {
			return DocumentRecord{}, err
		}
		rec.Chunks = append(rec.Chunks, ChunkRecord{Content: content, Author: model.UserID(author)})
	}
	return rec, nil
}

func parseUintAttr(o *object, key string) (uint64, error) {
	v, err := o.requireAttr(key)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.ParseUint(v, 10, 32)
	if convErr != nil {
		return 0, errAt(o.line, "attribute %q of %q must be an unsigned integer, got %q", key, o.name, v)
	}
	return n, nil
}

func parseByteAttr(o *object, key string) (uint8, error) {
	n, err := parseUintAttr(o, key)
	if err != nil {
		return 0, err
	}
	if n > 255 {
		return 0, errAt(o.line, "attribute %q of %q out of byte range: %d", key, o.name, n)
	}
	return uint8(n), nil
}
