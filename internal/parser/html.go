package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/typewriter/internal/charseq"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML fragments and full HTML documents.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (charseq.Sequence, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	markup := string(src)
	if !isDocument(markup) {
		return ParseMarkup(markup), nil
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	// Only the body is revealed; head content (title, meta) is not text.
	body := findBody(doc)
	if body == nil {
		return Flatten([]*html.Node{doc}), nil
	}
	var nodes []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return Flatten(nodes), nil
}

// ParseMarkup flattens an HTML fragment into a Sequence. The fragment is
// parsed as if it were the contents of <body>, so malformed markup is
// repaired by the HTML5 tree construction rules instead of rejected.
func ParseMarkup(markup string) charseq.Sequence {
	if markup == "" {
		return charseq.Sequence{}
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		// A strings.Reader never fails; treat anything else as no content.
		return charseq.Sequence{}
	}
	return Flatten(nodes)
}

// Flatten walks the nodes depth-first, pre-order, emitting one CharUnit per
// character of every text node.
func Flatten(nodes []*html.Node) charseq.Sequence {
	f := &flattener{seq: charseq.Sequence{}}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			f.text(n.Data)
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			f.push(n.Data, copyAttrs(n.Attr))
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			f.pop()
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	return f.seq
}

func copyAttrs(attrs []html.Attribute) []charseq.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]charseq.Attr, len(attrs))
	for i, a := range attrs {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		out[i] = charseq.Attr{Key: key, Val: a.Val}
	}
	return out
}

func isDocument(markup string) bool {
	head := strings.ToLower(strings.TrimSpace(markup))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.Contains(head, "<html")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
