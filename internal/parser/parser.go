package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/typewriter/internal/charseq"
)

// Parser converts raw content bytes into a character sequence.
type Parser interface {
	Parse(r io.Reader, filename string) (charseq.Sequence, error)
}

// Options tunes parsers that shell out or fall back.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return ForFormat(strings.TrimPrefix(ext, "."), opts)
}

// ForFormat returns the parser for an explicit format name. An empty
// format means HTML markup.
func ForFormat(format string, opts Options) (Parser, error) {
	switch strings.ToLower(format) {
	case "", "html", "htm":
		return &HTMLParser{}, nil
	case "md", "markdown":
		return &MarkdownParser{}, nil
	case "txt", "text":
		return &TextParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case "docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// flattener accumulates CharUnits while tracking the open tag stack.
type flattener struct {
	seq   charseq.Sequence
	stack charseq.TagPath
}

func (f *flattener) push(name string, attrs []charseq.Attr) {
	f.stack = append(f.stack, charseq.TagFrame{Name: strings.ToLower(name), Attrs: attrs})
}

func (f *flattener) pop() {
	if len(f.stack) > 0 {
		f.stack = f.stack[:len(f.stack)-1]
	}
}

// text emits one unit per rune. All runes of one call share a single copy
// of the stack; the copy is never mutated, so later pushes can't leak in.
func (f *flattener) text(s string) {
	if s == "" {
		return
	}
	var path charseq.TagPath
	if len(f.stack) > 0 {
		path = make(charseq.TagPath, len(f.stack))
		copy(path, f.stack)
	}
	for _, r := range s {
		f.seq = append(f.seq, charseq.CharUnit{Char: r, Path: path})
	}
}
