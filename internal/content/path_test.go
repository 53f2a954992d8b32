package content

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/acquisition/rates", "/acquisition/rates"},
		{"/acquisition/rates/", "/acquisition/rates"},
		{"acquisition/rates", "/acquisition/rates"},
		{"/acquisition//rates", "/acquisition/rates"},
		{"/acquisition/rates?tab=2", "/acquisition/rates"},
		{"/acquisition/rates#top", "/acquisition/rates"},
		{"  /property/base  ", "/property/base"},
		{"/a/./b/../c", "/a/c"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if Kind("carousel").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
	if Kind("").Valid() {
		t.Error("expected empty kind to be invalid")
	}
}

func TestDocumentWalk_DepthFirstOrder(t *testing.T) {
	doc := &Document{
		Children: []*Node{
			{Title: "A", Children: []*Node{{Title: "A1"}, {Title: "A2"}}},
			{Title: "B"},
		},
	}
	var got []string
	var depths []int
	doc.Walk(func(n *Node, depth int) {
		got = append(got, n.Title)
		depths = append(depths, depth)
	})
	want := []string{"A", "A1", "A2", "B"}
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
	if depths[0] != 1 || depths[1] != 2 || depths[3] != 1 {
		t.Errorf("unexpected depths %v", depths)
	}
}
