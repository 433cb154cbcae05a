package ot

import (
	"encoding/json"
	"fmt"
)

// wireOp is the tagged-union encoding used on the wire and in persisted
// sessions: exactly one of the pointer fields is set, selected by Kind.
type wireOp struct {
	Kind     string    `json:"kind"`
	Insert   *wireIns  `json:"insert,omitempty"`
	Delete   *wireDel  `json:"delete,omitempty"`
	Split    *wireSpl  `json:"split,omitempty"`
	Reinsert *wireReIn `json:"reinsert,omitempty"`
}

type wireIns struct {
	Pos  int    `json:"pos"`
	Text string `json:"text"`
}

type wireDel struct {
	Pos int `json:"pos"`
	Len int `json:"len"`
}

type wireSpl struct {
	First  json.RawMessage `json:"first"`
	Second json.RawMessage `json:"second"`
}

type wireReIn struct {
	Pos    int     `json:"pos"`
	Chunks []Chunk `json:"chunks"`
}

// MarshalOperation encodes any Operation produced by this package.
func MarshalOperation(op Operation) ([]byte, error) {
	w, err := toWire(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toWire(op Operation) (wireOp, error) {
	switch v := op.(type) {
	case Noop:
		return wireOp{Kind: "noop"}, nil
	case Insert:
		return wireOp{Kind: "insert", Insert: &wireIns{Pos: v.Pos, Text: v.Text}}, nil
	case Delete:
		return wireOp{Kind: "delete", Delete: &wireDel{Pos: v.Pos, Len: v.Len}}, nil
	case Split:
		firstJSON, err := MarshalOperation(v.First)
		if err != nil {
			return wireOp{}, err
		}
		secondJSON, err := MarshalOperation(v.Second)
		if err != nil {
			return wireOp{}, err
		}
		return wireOp{Kind: "split", Split: &wireSpl{First: firstJSON, Second: secondJSON}}, nil
	case ReversibleInsert:
		return wireOp{Kind: "reinsert", Reinsert: &wireReIn{Pos: v.Pos, Chunks: v.Authored.ChunkIter()}}, nil
	default:
		return wireOp{}, fmt.Errorf("ot: unknown operation type %T", op)
	}
}

// UnmarshalOperation decodes an Operation previously produced by
// MarshalOperation.
func UnmarshalOperation(data []byte) (Operation, error) {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ot: decode operation: %w", err)
	}
	return fromWire(w)
}

func fromWire(w wireOp) (Operation, error) {
	switch w.Kind {
	case "noop":
		return Noop{}, nil
	case "insert":
		if w.Insert == nil {
			return nil, fmt.Errorf("ot: insert operation missing body")
		}
		return Insert{Pos: w.Insert.Pos, Text: w.Insert.Text}, nil
	case "delete":
		if w.Delete == nil {
			return nil, fmt.Errorf("ot: delete operation missing body")
		}
		return Delete{Pos: w.Delete.Pos, Len: w.Delete.Len}, nil
	case "split":
		if w.Split == nil {
			return nil, fmt.Errorf("ot: split operation missing body")
		}
		first, err := UnmarshalOperation(w.Split.First)
		if err != nil {
			return nil, err
		}
		second, err := UnmarshalOperation(w.Split.Second)
		if err != nil {
			return nil, err
		}
		return Split{First: first, Second: second}, nil
	case "reinsert":
		if w.Reinsert == nil {
			return nil, fmt.Errorf("ot: reinsert operation missing body")
		}
		text := NewText(DefaultMaxChunk)
		pos := 0
		for _, c := range w.Reinsert.Chunks {
			text.Insert(pos, c.Text, c.Author)
			pos += len(c.Text)
		}
		return ReversibleInsert{Pos: w.Reinsert.Pos, Authored: text}, nil
	default:
		return nil, fmt.Errorf("ot: unknown operation kind %q", w.Kind)
	}
}

// MarshalJSON implements json.Marshaler for Record.
func (r Record) MarshalJSON() ([]byte, error) {
	opJSON, err := MarshalOperation(r.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Local  uint32          `json:"local"`
		Remote uint32          `json:"remote"`
		Op     json.RawMessage `json:"op"`
	}{Local: r.Time.Local, Remote: r.Time.Remote, Op: opJSON})
}

// UnmarshalJSON implements json.Unmarshaler for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		Local  uint32          `json:"local"`
		Remote uint32          `json:"remote"`
		Op     json.RawMessage `json:"op"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("ot: decode record: %w", err)
	}
	op, err := UnmarshalOperation(aux.Op)
	if err != nil {
		return err
	}
	r.Time = VectorTime{Local: aux.Local, Remote: aux.Remote}
	r.Op = op
	return nil
}
