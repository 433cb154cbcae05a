package protocol

import (
	"encoding/json"
	"testing"

	"github.com/obbygo/obbygo/internal/model"
	"github.com/obbygo/obbygo/internal/ot"
)

func TestClientMsgRoundTrip(t *testing.T) {
	cases := []ClientMsg{
		{Login: &LoginMsg{Name: "alice", Colour: model.Colour{Red: 1, Green: 2, Blue: 3}}},
		{Document: &DocumentEnvelope{
			Doc:    DocRef{Owner: 1, ID: 2},
			Record: &RecordMsg{Author: 1, Record: ot.Record{Time: ot.VectorTime{Local: 1}, Op: ot.Insert{Pos: 0, Text: "hi"}}},
		}},
		{CommandQuery: &CommandQueryMsg{Command: "help"}},
	}

	for _, msg := range cases {
		data, err := json.Marshal(&msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back ClientMsg
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
	}
}

func TestServerMsgRoundTrip(t *testing.T) {
	cases := []ServerMsg{
		{Welcome: &WelcomeMsg{ProtocolVersion: ProtocolVersion, Token: "tok"}},
		{SyncFinal: &struct{}{}},
		{Join: &JoinMsg{User: 3, Name: "bob"}},
		{Document: &DocumentEnvelope{Doc: DocRef{Owner: 0, ID: 1}, SyncFinal: &struct{}{}}},
	}

	for _, msg := range cases {
		data, err := json.Marshal(&msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back ServerMsg
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
	}
}

func TestClientMsgUnmarshalUnrecognized(t *testing.T) {
	var msg ClientMsg
	if err := json.Unmarshal([]byte(`{"Bogus":{}}`), &msg); err == nil {
		t.Fatalf("expected an error for an unrecognized tag")
	}
}
