package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrKind
		pred func(error) bool
	}{
		{New(ErrKindMissingCredential, "no key"), ErrKindMissingCredential, IsMissingCredential},
		{New(ErrKindParseFailure, "bad csv"), ErrKindParseFailure, IsParseFailure},
		{New(ErrKindDuplicateName, "dup"), ErrKindDuplicateName, IsDuplicateName},
		{New(ErrKindNotFound, "gone"), ErrKindNotFound, IsNotFound},
		{New(ErrKindCompletionService, "502"), ErrKindCompletionService, IsCompletionService},
		{New(ErrKindInvalidInput, "empty"), ErrKindInvalidInput, IsInvalidInput},
		{New(ErrKindStorage, "disk"), ErrKindStorage, IsStorage},
	}
	for _, c := range cases {
		if !c.pred(c.err) {
			t.Errorf("%s: predicate returned false", c.kind)
		}
		wrapped := fmt.Errorf("outer: %w", c.err)
		if KindOf(wrapped) != c.kind {
			t.Errorf("%s: kind lost through fmt wrapping, got %s", c.kind, KindOf(wrapped))
		}
	}
	if KindOf(errors.New("plain")) != ErrKindUnknown {
		t.Fatalf("plain errors must report unknown kind")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrKindStorage, "save session", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if got := err.Error(); got != "[storage] save session: connection reset" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := Newf(ErrKindNotFound, "session %q not found", "x").Error(); got != `[not_found] session "x" not found` {
		t.Fatalf("unexpected message: %q", got)
	}
}
