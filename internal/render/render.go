package render

import (
	"fmt"

	"github.com/dgallion1/typewriter/internal/charseq"
)

// TreeBuilder constructs display nodes of type N. Implementations decide
// what a node is; the renderer only composes them.
type TreeBuilder[N any] interface {
	CreateElement(name string, attrs []charseq.Attr) N
	CreateText(r rune) N
	AppendChild(parent, child N)
	// ReplaceContents swaps every child of root for children.
	ReplaceContents(root N, children []N)
}

// Build constructs the top-level nodes for the first cut units of seq.
//
// It keeps a stack of materialized ancestors. For each unit it pops until
// the stack is a name-wise prefix of the unit's path, then pushes new
// elements for the rest of the path and appends the character. Only tag
// names are compared, so two adjacent siblings with equal names but
// different attributes merge into the first one.
//
// cut outside [0, len(seq)] is a caller bug and panics.
func Build[N any](b TreeBuilder[N], seq charseq.Sequence, cut int) []N {
	if cut < 0 || cut > len(seq) {
		panic(fmt.Sprintf("render: cut index %d outside [0, %d]", cut, len(seq)))
	}

	var roots, stack []N
	var names []string
	attach := func(n N) {
		if len(stack) == 0 {
			roots = append(roots, n)
			return
		}
		b.AppendChild(stack[len(stack)-1], n)
	}

	for _, u := range seq[:cut] {
		keep := 0
		for keep < len(stack) && keep < len(u.Path) && names[keep] == u.Path[keep].Name {
			keep++
		}
		stack = stack[:keep]
		names = names[:keep]
		for len(stack) < len(u.Path) {
			frame := u.Path[len(stack)]
			el := b.CreateElement(frame.Name, frame.Attrs)
			attach(el)
			stack = append(stack, el)
			names = append(names, frame.Name)
		}
		attach(b.CreateText(u.Char))
	}
	return roots
}

// Renderer rebuilds a root node's contents from a sequence prefix.
type Renderer[N any] struct {
	builder TreeBuilder[N]
	root    N
}

func NewRenderer[N any](b TreeBuilder[N], root N) *Renderer[N] {
	return &Renderer[N]{builder: b, root: root}
}

// Render replaces the root's contents with the tree for seq[:cut]. The
// result depends only on (seq, cut).
func (r *Renderer[N]) Render(seq charseq.Sequence, cut int) {
	r.builder.ReplaceContents(r.root, Build(r.builder, seq, cut))
}

// Root returns the node the renderer draws into.
func (r *Renderer[N]) Root() N {
	return r.root
}
