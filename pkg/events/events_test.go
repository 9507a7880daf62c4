package events

import (
	"context"
	"testing"
)

func TestNewAssignsIdentity(t *testing.T) {
	a, b := New(RideAccepted), New(RideAccepted)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.OccurredAt.IsZero() {
		t.Fatal("missing timestamp")
	}
}

func TestKey(t *testing.T) {
	e := New(RideRequested)
	e.RequestID = 12
	if e.Key() != "request-12" {
		t.Fatalf("key = %q", e.Key())
	}
	e = New(RideSettled)
	e.RideID = 4
	if e.Key() != "ride-4" {
		t.Fatalf("key = %q", e.Key())
	}
}

func TestNopPublisher(t *testing.T) {
	p := NewNop()
	if err := p.Publish(context.Background(), New(RideSettled)); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
