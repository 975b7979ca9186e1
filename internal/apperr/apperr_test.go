package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("toggle: %w", NotFound("item", "7"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped not-found to match ErrNotFound")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("did not expect not-found to match ErrValidation")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, ""},
		{Validation("text", "empty"), CodeValidation},
		{fmt.Errorf("x: %w", Unauthorized("todo:myaddinstance")), CodeUnauthorized},
		{sql.ErrConnDone, CodeInternal},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Fatalf("CodeOf(%v): expected %q; got %q", c.err, c.want, got)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := CodeValidation.HTTPStatus(); got != http.StatusBadRequest {
		t.Fatalf("expected 400; got %d", got)
	}
	if got := CodeNotFound.HTTPStatus(); got != http.StatusNotFound {
		t.Fatalf("expected 404; got %d", got)
	}
	if got := CodeUnauthorized.HTTPStatus(); got != http.StatusUnauthorized {
		t.Fatalf("expected 401; got %d", got)
	}
	if got := Code("whatever").HTTPStatus(); got != http.StatusInternalServerError {
		t.Fatalf("expected 500; got %d", got)
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	err := Internal(sql.ErrTxDone)
	if !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.Error() != sql.ErrTxDone.Error() {
		t.Fatalf("expected cause message; got %q", err.Error())
	}
}
