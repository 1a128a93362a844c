package naming

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"A-1":        "A_1",
		"AT 123/45":  "AT_123_45",
		"plain_key9": "plain_key9",
		"Ä1":         "_1",
		"":           "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllocateSuffixesCollisions(t *testing.T) {
	a := NewAllocator()
	got := []string{a.Allocate("A-1"), a.Allocate("A 1"), a.Allocate("A/1"), a.Allocate("B")}
	if got[0] != "A_1" || got[1] != "A_1_1" || got[2] != "A_1_2" {
		t.Fatalf("unexpected collision names: %v", got)
	}
	if got[3] == "B" {
		t.Fatal("single character key must not be used as a name")
	}
	seen := map[string]bool{}
	for _, name := range got {
		if seen[name] {
			t.Fatalf("duplicate name %q in %v", name, got)
		}
		seen[name] = true
		if !a.Used(name) {
			t.Fatalf("returned name %q not recorded as used", name)
		}
	}
}

func TestAllocateSkipsTakenSuffix(t *testing.T) {
	a := NewAllocator()
	a.Allocate("K_1_1")
	a.Allocate("K-1")
	if got := a.Allocate("K 1"); got != "K_1_2" {
		t.Fatalf("expected first free suffix, got %q", got)
	}
	if a.Len() != 3 {
		t.Fatalf("expected 3 used names, got %d", a.Len())
	}
}

func TestAllocateShortKeyUsesRandomID(t *testing.T) {
	a := NewAllocator()
	name := a.Allocate("-")
	if _, err := uuid.Parse(name); err != nil {
		t.Fatalf("expected uuid fallback, got %q: %v", name, err)
	}
	if other := a.Allocate(""); other == name {
		t.Fatal("fallback identifiers must differ")
	}
}

func TestAllocateFallbackIsRecorded(t *testing.T) {
	a := NewAllocator()
	a.newID = func() string { return "fixed_id" }
	if got := a.Allocate("x"); got != "fixed_id" {
		t.Fatalf("expected stubbed id, got %q", got)
	}
	if got := a.Allocate("fixed-id"); got != "fixed_id_1" {
		t.Fatalf("expected collision with fallback id, got %q", got)
	}
}
