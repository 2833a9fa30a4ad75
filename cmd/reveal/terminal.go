package main

import (
	"io"
	"strings"

	"github.com/dgallion1/typewriter/internal/charseq"
)

type style uint8

const (
	styleBold style = 1 << iota
	styleItalic
	styleUnderline
)

func styleOf(path charseq.TagPath) style {
	var s style
	for _, f := range path {
		switch f.Name {
		case "b", "strong", "h1", "h2", "h3", "h4", "h5", "h6", "th":
			s |= styleBold
		case "i", "em", "cite":
			s |= styleItalic
		case "u", "a", "ins":
			s |= styleUnderline
		}
	}
	return s
}

func (s style) sgr() string {
	if s == 0 {
		return "\x1b[0m"
	}
	parts := []string{"0"}
	if s&styleBold != 0 {
		parts = append(parts, "1")
	}
	if s&styleItalic != 0 {
		parts = append(parts, "3")
	}
	if s&styleUnderline != 0 {
		parts = append(parts, "4")
	}
	return "\x1b[" + strings.Join(parts, ";") + "m"
}

// termDisplay writes newly revealed characters to a stream as they arrive.
// Moving the cut backwards starts a fresh line and replays the prefix.
type termDisplay struct {
	w     io.Writer
	color bool
	shown int
	cur   style
}

func newTermDisplay(w io.Writer, color bool) *termDisplay {
	return &termDisplay{w: w, color: color}
}

func (d *termDisplay) Render(seq charseq.Sequence, cut int) {
	var buf strings.Builder
	if cut < d.shown {
		d.resetStyle(&buf)
		buf.WriteByte('\n')
		d.shown = 0
	}
	for _, u := range seq[d.shown:cut] {
		if d.color {
			if s := styleOf(u.Path); s != d.cur {
				buf.WriteString(s.sgr())
				d.cur = s
			}
		}
		buf.WriteRune(u.Char)
	}
	d.shown = cut
	if buf.Len() > 0 {
		io.WriteString(d.w, buf.String())
	}
}

// Finish restores the default style and ends the line. The next render
// starts from an empty prefix.
func (d *termDisplay) Finish() {
	var buf strings.Builder
	d.resetStyle(&buf)
	buf.WriteByte('\n')
	io.WriteString(d.w, buf.String())
	d.shown = 0
}

func (d *termDisplay) resetStyle(buf *strings.Builder) {
	if d.cur != 0 {
		buf.WriteString(style(0).sgr())
		d.cur = 0
	}
}
