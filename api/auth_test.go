package api

import (
	"testing"
	"time"

	"ridematch/pkg/models"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	token, exp, err := m.Issue(&models.Account{ID: 42, Role: models.RoleDriver})
	if err != nil {
		t.Fatal(err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry %v is in the past", exp)
	}
	id, err := m.Parse(token)
	if err != nil || id != 42 {
		t.Fatalf("parse: %d, %v", id, err)
	}
}

func TestTokenRejected(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	token, _, err := m.Issue(&models.Account{ID: 1, Role: models.RolePassenger})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenManager("other", time.Minute).Parse(token); err == nil {
		t.Fatal("token accepted with the wrong secret")
	}

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := expired.Parse(token); err == nil {
		t.Fatal("expired token accepted")
	}
}
