package render

import (
	"strings"

	"github.com/dgallion1/typewriter/internal/charseq"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLBuilder builds golang.org/x/net/html nodes. Consecutive character
// leaves under one parent are coalesced into a single text node.
type HTMLBuilder struct{}

func (HTMLBuilder) CreateElement(name string, attrs []charseq.Attr) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	}
	if len(attrs) > 0 {
		n.Attr = make([]html.Attribute, len(attrs))
		for i, a := range attrs {
			n.Attr[i] = html.Attribute{Key: a.Key, Val: a.Val}
		}
	}
	return n
}

func (HTMLBuilder) CreateText(r rune) *html.Node {
	return &html.Node{Type: html.TextNode, Data: string(r)}
}

func (HTMLBuilder) AppendChild(parent, child *html.Node) {
	if child.Type == html.TextNode {
		if last := parent.LastChild; last != nil && last.Type == html.TextNode {
			last.Data += child.Data
			return
		}
	}
	parent.AppendChild(child)
}

func (b HTMLBuilder) ReplaceContents(root *html.Node, children []*html.Node) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		c = next
	}
	for _, c := range children {
		b.AppendChild(root, c)
	}
}

// NewRoot returns a detached container element for an HTML renderer.
func NewRoot() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

// NewHTMLRenderer returns a renderer drawing into a fresh container.
func NewHTMLRenderer() *Renderer[*html.Node] {
	return NewRenderer[*html.Node](HTMLBuilder{}, NewRoot())
}

// RenderHTML serializes the children of root.
func RenderHTML(root *html.Node) string {
	var buf strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		// Writes to a strings.Builder don't fail.
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Frame renders seq[:cut] to an HTML string.
func Frame(seq charseq.Sequence, cut int) string {
	root := NewRoot()
	HTMLBuilder{}.ReplaceContents(root, Build[*html.Node](HTMLBuilder{}, seq, cut))
	return RenderHTML(root)
}

// HTML returns the current contents of an HTML renderer.
func HTML(r *Renderer[*html.Node]) string {
	return RenderHTML(r.Root())
}
