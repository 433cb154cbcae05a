package model

import "testing"

func TestDocumentSubscription(t *testing.T) {
	d := NewDocument(1, 1, "notes", "utf-8")
	if d.IsSubscribed(7) {
		t.Fatalf("expected no subscribers initially")
	}
	d.Subscribe(7)
	if !d.IsSubscribed(7) {
		t.Fatalf("expected user 7 to be subscribed")
	}
	if got := d.Subscribers(); len(got) != 1 || got[0] != 7 {
		t.Fatalf("unexpected subscriber list: %v", got)
	}
	d.Unsubscribe(7)
	if d.IsSubscribed(7) {
		t.Fatalf("expected user 7 to be unsubscribed")
	}
}

func TestDocumentAssignableRequiresText(t *testing.T) {
	d := NewDocument(1, 1, "notes", "utf-8")
	if d.Assignable() {
		t.Fatalf("expected a freshly created document to have no content yet")
	}
}
