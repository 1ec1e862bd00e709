package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := Validation(CodeInvalidAmount, "amounts must be non-negative")
	want := "InvalidAmount: amounts must be non-negative"
	if err.Error() != want {
		t.Fatalf("want %q, got %q", want, err.Error())
	}
}

func TestIsCode(t *testing.T) {
	err := StateConflict(CodeCircleFull, "circle is at capacity")
	if !IsCode(err, CodeCircleFull) {
		t.Fatal("want IsCode to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("want IsCode to reject other codes")
	}
	if IsCode(errors.New("plain"), CodeCircleFull) {
		t.Fatal("want IsCode false for foreign errors")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := StateConflict(CodeRoundNotReady, "members owe")
	wrapped := fmt.Errorf("completing round: %w", inner)
	if !IsCode(wrapped, CodeRoundNotReady) {
		t.Fatal("want IsCode to see through wrapping")
	}
	if KindOf(wrapped) != KindStateConflict {
		t.Fatalf("want state_conflict kind, got %s", KindOf(wrapped))
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("disk on fire")); got != KindPersistence {
		t.Fatalf("want persistence for unclassified errors, got %s", got)
	}
}

func TestPersistenceUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause)
	if !errors.Is(err, cause) {
		t.Fatal("want the cause reachable via errors.Is")
	}
	if KindOf(err) != KindPersistence {
		t.Fatalf("want persistence kind, got %s", KindOf(err))
	}
}
