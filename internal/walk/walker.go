// Package walk flattens the nested entries tree of a channel document into
// its ordered list of leaf entries.
//
// A node is a container when it carries a non-null nested collection
// (schema.NestedKey) and a leaf otherwise. Containers are expanded, never
// emitted. Traversal uses an explicit stack so document depth is bounded only
// by memory.
package walk

import (
	"fmt"

	"github.com/franz/yt-schema/internal/extract"
	"github.com/franz/yt-schema/internal/schema"
)

// Kind tags a classified node.
type Kind int

const (
	Leaf Kind = iota
	Container
)

func (k Kind) String() string {
	if k == Container {
		return "container"
	}
	return "leaf"
}

// Node is a classified document node.
type Node struct {
	Kind Kind
	Path string
	// Fields is the node's own object.
	Fields map[string]any
	// Children holds the nested collection of a container, in source order.
	Children []any
}

// Classify inspects raw and tags it as a leaf or container. raw must be an
// object; a present nested collection must be an array.
func Classify(raw any, path string) (Node, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Node{}, extract.NewShapeError(path, "object", raw)
	}

	nested, present := fields[schema.NestedKey]
	if !present || nested == nil {
		return Node{Kind: Leaf, Path: path, Fields: fields}, nil
	}

	children, ok := nested.([]any)
	if !ok {
		return Node{}, extract.NewShapeError(path+"."+schema.NestedKey, "array", nested)
	}
	return Node{Kind: Container, Path: path, Fields: fields, Children: children}, nil
}

// Entry is a leaf found by Flatten.
type Entry struct {
	// Index is the 0-based position in depth-first, left-to-right order.
	Index int
	// Depth counts the containers above the leaf, the root included.
	Depth  int
	Path   string
	Fields map[string]any
}

type frame struct {
	raw   any
	path  string
	depth int
}

// Flatten returns every leaf entry below root in depth-first, left-to-right
// order. The root is the document itself and is never emitted; a root
// without a nested collection yields no entries.
func Flatten(root any) ([]Entry, error) {
	top, err := Classify(root, "$")
	if err != nil {
		return nil, err
	}
	if top.Kind == Leaf {
		return nil, nil
	}

	var out []Entry
	stack := make([]frame, 0, len(top.Children))
	stack = pushChildren(stack, top, 1)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, err := Classify(f.raw, f.path)
		if err != nil {
			return nil, err
		}
		if node.Kind == Container {
			stack = pushChildren(stack, node, f.depth+1)
			continue
		}
		out = append(out, Entry{Index: len(out), Depth: f.depth, Path: f.path, Fields: node.Fields})
	}
	return out, nil
}

// pushChildren pushes in reverse so the first child is popped first.
func pushChildren(stack []frame, n Node, depth int) []frame {
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, frame{
			raw:   n.Children[i],
			path:  fmt.Sprintf("%s.%s[%d]", n.Path, schema.NestedKey, i),
			depth: depth,
		})
	}
	return stack
}
