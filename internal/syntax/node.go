package syntax

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// node adapts a tree-sitter node to extractor.Node.
type node struct {
	n *sitter.Node
}

// wrap returns nil for a nil tree-sitter node so callers can compare the
// interface against nil.
func wrap(n *sitter.Node) extractor.Node {
	if n == nil {
		return nil
	}
	return node{n: n}
}

func (n node) Kind() string {
	return n.n.Kind()
}

func (n node) ChildCount() uint {
	return n.n.ChildCount()
}

func (n node) Child(i uint) extractor.Node {
	return wrap(n.n.Child(i))
}

func (n node) ChildByFieldName(name string) extractor.Node {
	return wrap(n.n.ChildByFieldName(name))
}

func (n node) StartByte() uint {
	return n.n.StartByte()
}

func (n node) EndByte() uint {
	return n.n.EndByte()
}

func (n node) StartRow() uint {
	return n.n.StartPosition().Row
}
