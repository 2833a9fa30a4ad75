package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading paragraphs map to h1-h6, others
// to p; bold, italic and underlined runs map to strong, em and u.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (charseq.Sequence, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "typewriter-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	f := &flattener{seq: charseq.Sequence{}}
	first := true
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if !first {
			f.text("\n")
		}
		first = false

		block := "p"
		if level := docxHeadingLevel(para); level > 0 {
			block = fmt.Sprintf("h%d", level)
		}
		f.push(block, nil)
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			writeRun(f, run)
		}
		f.pop()
	}

	return f.seq, nil
}

func writeRun(f *flattener, run *docx.Run) {
	var text strings.Builder
	for _, rc := range run.Children {
		if t, ok := rc.(*docx.Text); ok {
			text.WriteString(t.Text)
		}
	}
	if text.Len() == 0 {
		return
	}

	depth := 0
	if props := run.RunProperties; props != nil {
		if props.Bold != nil {
			f.push("strong", nil)
			depth++
		}
		if props.Italic != nil {
			f.push("em", nil)
			depth++
		}
		if props.Underline != nil && props.Underline.Val != "none" {
			f.push("u", nil)
			depth++
		}
	}
	f.text(text.String())
	for range depth {
		f.pop()
	}
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}
