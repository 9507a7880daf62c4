package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("accept: %w", Conflict("driver %d busy", 7))
	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected conflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("unexpected not found")
	}
	if got := HTTPStatus(err); got != http.StatusConflict {
		t.Fatalf("status = %d", got)
	}
}

func TestStorageWrapsRawErrors(t *testing.T) {
	raw := errors.New("connection reset")
	err := Storage(raw)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, raw) {
		t.Fatalf("unexpected %v", err)
	}
	if PublicMessage(err) != "internal error" {
		t.Fatalf("leaked %q", PublicMessage(err))
	}

	tagged := NotFound("ride 1")
	if Storage(tagged) != tagged {
		t.Fatal("tagged error was rewrapped")
	}
	if Storage(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidInput("x"), http.StatusBadRequest},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{New(ErrUnauthorized, "x"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("%v: got %d want %d", c.err, got, c.want)
		}
	}
}
