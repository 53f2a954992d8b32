package sequence

import (
	"testing"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/registry"
	"github.com/dgallion1/taxguide/internal/router"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := registry.New(
		content.Sequence{ID: "s1", Units: []content.Unit{
			{Key: "a", Path: "/a"}, {Key: "b", Path: "/b"}, {Key: "c", Path: "/c"},
		}},
		content.Sequence{ID: "s2", Units: []content.Unit{{Key: "x", Path: "/x"}}},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewResolver(reg)
}

func TestLocate_Hit(t *testing.T) {
	r := testResolver(t)
	loc := r.Locate("/b/")
	if !loc.Sequenced {
		t.Fatal("expected /b to be sequenced")
	}
	if loc.Path != "/b" {
		t.Errorf("expected normalized path /b, got %q", loc.Path)
	}
	if loc.Index != 1 || loc.Next.Key != "c" || loc.Prev.Key != "a" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestLocate_MissFallsBack(t *testing.T) {
	r := testResolver(t)
	loc := r.Locate("/z")
	if loc.Sequenced {
		t.Fatal("expected /z to be unsequenced")
	}
	if loc.Path != "/z" || loc.Index != -1 || loc.Current != nil {
		t.Errorf("unexpected fallback location %+v", loc)
	}
}

func TestLocate_IsPure(t *testing.T) {
	r := testResolver(t)
	first := r.Locate("/a")
	second := r.Locate("/a")
	if first.Current != second.Current || first.Index != second.Index {
		t.Error("expected repeated lookups to agree")
	}
}

func TestLocateCurrent_UsesInjectedRouter(t *testing.T) {
	r := testResolver(t)
	rt := router.NewMemory("/c")
	if loc := r.LocateCurrent(rt); loc.Current == nil || loc.Current.Key != "c" {
		t.Fatalf("expected c, got %+v", loc)
	}
	rt.Navigate("/x")
	if loc := r.LocateCurrent(rt); loc.Sequence.ID != "s2" {
		t.Fatalf("expected s2 after navigate, got %+v", loc)
	}
}

func TestSameSequence(t *testing.T) {
	r := testResolver(t)
	if !SameSequence(r.Locate("/a"), r.Locate("/c")) {
		t.Error("expected /a and /c to share a sequence")
	}
	if SameSequence(r.Locate("/a"), r.Locate("/x")) {
		t.Error("expected /a and /x to differ")
	}
	if SameSequence(r.Locate("/z"), r.Locate("/z")) {
		t.Error("expected misses never to share a sequence")
	}
}
