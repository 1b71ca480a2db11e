package serverconn

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	e1 := NewError(KindTimedOut, fmt.Errorf("no activity"))
	e2 := NewError(KindTimedOut, fmt.Errorf("a different cause"))
	if !errors.Is(e1, e2) {
		t.Fatal("two errors with the same Kind should match via errors.Is")
	}
}

func TestErrorIsRejectsDifferentKind(t *testing.T) {
	e1 := NewError(KindTimedOut, nil)
	e2 := NewError(KindIOFailed, nil)
	if errors.Is(e1, e2) {
		t.Fatal("errors with different Kind must not match")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	e := NewError(KindConnectFailed, cause)
	if errors.Unwrap(e) != cause {
		t.Fatal("Unwrap should return the wrapped cause")
	}
}

func TestSessionClosingSentinel(t *testing.T) {
	if !errors.Is(ErrSessionClosing, NewError(KindSessionClosing, nil)) {
		t.Fatal("ErrSessionClosing should match any session_closing error by Kind")
	}
}
