package charseq

import "testing"

func TestSequence_Text(t *testing.T) {
	seq := Sequence{{Char: 'H'}, {Char: 'i'}, {Char: '!'}}

	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{2, "Hi"},
		{3, "Hi!"},
		{10, "Hi!"},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := seq.Text(tt.n); got != tt.want {
			t.Errorf("Text(%d): expected %q, got %q", tt.n, tt.want, got)
		}
	}
}

func TestTagFrame_Attributes(t *testing.T) {
	f := TagFrame{Name: "a", Attrs: []Attr{{"href", "/x"}, {"class", "lnk"}}}
	m := f.Attributes()
	if len(m) != 2 || m["href"] != "/x" || m["class"] != "lnk" {
		t.Errorf("unexpected attribute map %v", m)
	}
	if v, ok := f.Attr("class"); !ok || v != "lnk" {
		t.Errorf("expected class=lnk, got %q (%v)", v, ok)
	}
	if _, ok := f.Attr("id"); ok {
		t.Error("expected missing attribute to report false")
	}
}

func TestTagPath_NamesAndHas(t *testing.T) {
	p := TagPath{{Name: "p"}, {Name: "em"}}
	names := p.Names()
	if len(names) != 2 || names[0] != "p" || names[1] != "em" {
		t.Errorf("unexpected names %v", names)
	}
	if !p.Has("em") || p.Has("b") {
		t.Error("Has reported wrong membership")
	}
}

func TestSequence_MaxDepth(t *testing.T) {
	seq := Sequence{
		{Char: 'a'},
		{Char: 'b', Path: TagPath{{Name: "p"}, {Name: "b"}}},
		{Char: 'c', Path: TagPath{{Name: "p"}}},
	}
	if d := seq.MaxDepth(); d != 2 {
		t.Errorf("expected depth 2, got %d", d)
	}
	if d := (Sequence{}).MaxDepth(); d != 0 {
		t.Errorf("expected depth 0 for empty sequence, got %d", d)
	}
}
