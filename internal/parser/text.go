package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/typewriter/internal/charseq"
)

// TextParser handles plain text. Angle brackets are literal characters.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (charseq.Sequence, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return Literal(string(src)), nil
}

// Literal returns a Sequence with one unwrapped unit per rune of s.
func Literal(s string) charseq.Sequence {
	f := &flattener{seq: charseq.Sequence{}}
	f.text(s)
	return f.seq
}
