package core

import (
	"strings"
	"testing"
)

func TestEntityIDDeterministic(t *testing.T) {
	id1 := EntityID("Alice")
	id2 := EntityID("Alice")

	if id1 != id2 {
		t.Fatalf("Expected identical IDs for identical content, got %s and %s", id1, id2)
	}

	if !strings.HasPrefix(id1, EntityIDPrefix) {
		t.Fatalf("Expected prefix %q, got %s", EntityIDPrefix, id1)
	}
}

func TestEntityIDDistinctContent(t *testing.T) {
	if EntityID("Alice") == EntityID("Bob") {
		t.Fatal("Expected distinct IDs for distinct content")
	}
}

func TestRelationIDPrefix(t *testing.T) {
	id := RelationID("Alice->Bob")

	if !strings.HasPrefix(id, RelationIDPrefix) {
		t.Fatalf("Expected prefix %q, got %s", RelationIDPrefix, id)
	}

	if RelationID("Alice->Bob") != id {
		t.Fatal("Expected deterministic relation IDs")
	}
}

func TestEntityAndRelationIDsDisjoint(t *testing.T) {
	// Same content, different kinds, must never collide.
	if EntityID("x") == RelationID("x") {
		t.Fatal("Entity and relation IDs must differ for the same content")
	}
}

func TestDocStatusValid(t *testing.T) {
	valid := []DocStatus{StatusPending, StatusProcessing, StatusProcessed, StatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Fatalf("Expected %q to be valid", s)
		}
	}

	invalid := []DocStatus{"", "done", "PENDING"}
	for _, s := range invalid {
		if s.Valid() {
			t.Fatalf("Expected %q to be invalid", s)
		}
	}
}
