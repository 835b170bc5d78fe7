package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator_NewID(t *testing.T) {
	g := NewUUIDGenerator()

	first, err := g.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}
	second, err := g.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected uuid formatted id, got %q: %v", first, err)
	}
}
