package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// MarkdownParser handles Markdown using goldmark. The document is rendered
// to HTML first and then flattened like any other markup.
type MarkdownParser struct{}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// Content is trusted by the caller; inline HTML passes through.
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

func (p *MarkdownParser) Parse(r io.Reader, filename string) (charseq.Sequence, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	out, err := MarkdownToHTML(src)
	if err != nil {
		return nil, err
	}
	return ParseMarkup(out), nil
}

// MarkdownToHTML renders Markdown source to an HTML fragment.
func MarkdownToHTML(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
