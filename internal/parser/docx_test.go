package parser

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/fumiama/go-docx"
)

func buildDOCX(t *testing.T, build func(w *docx.Docx)) *bytes.Reader {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	build(w)
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestDOCXParser_HeadingsAndRuns(t *testing.T) {
	r := buildDOCX(t, func(w *docx.Docx) {
		w.AddParagraph().Style("Heading1").AddText("Title")
		p := w.AddParagraph()
		p.AddText("plain")
		p.AddText("bold").Bold()
		p.AddText("it").Italic()
		p.AddText("line").Underline("single")
	})

	seq, err := (&DOCXParser{}).Parse(r, "report.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := seq.Text(len(seq)); got != "Title\nplainbolditline" {
		t.Fatalf("expected paragraph text, got %q", got)
	}

	tests := []struct {
		index int
		want  []string
	}{
		{0, []string{"h1"}},
		{5, nil},
		{6, []string{"p"}},
		{11, []string{"p", "strong"}},
		{15, []string{"p", "em"}},
		{17, []string{"p", "u"}},
	}
	for _, tt := range tests {
		names := seq[tt.index].Path.Names()
		if len(names) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(names, tt.want) {
			t.Errorf("unit %d: expected %v, got %v", tt.index, tt.want, names)
		}
	}
}

func TestDOCXParser_UnderlineNoneIsPlain(t *testing.T) {
	r := buildDOCX(t, func(w *docx.Docx) {
		w.AddParagraph().AddText("flat").Underline("none")
	})

	seq, err := (&DOCXParser{}).Parse(r, "flat.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq) != 4 {
		t.Fatalf("expected 4 units, got %d", len(seq))
	}
	for i, u := range seq {
		if u.Path.Has("u") {
			t.Errorf("unit %d: expected no underline, got %v", i, u.Path.Names())
		}
	}
}

func TestDOCXParser_RejectsGarbage(t *testing.T) {
	if _, err := (&DOCXParser{}).Parse(bytes.NewReader([]byte("not a zip")), "bad.docx"); err == nil {
		t.Fatal("expected error for non-docx input")
	}
}
