// Package extractor walks a concrete syntax tree and summarizes the functions,
// classes and direct calls a single source file declares.
//
// Extraction is a pure function of (path, source, tree, profile): it does no
// I/O and keeps no state between calls, so files can be extracted
// concurrently without coordination.
package extractor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mvp-joe/codegenius/internal/grammar"
)

// CalleeField is the field of a call node holding the invoked expression.
const CalleeField = "function"

// identifierKind is the node kind of a bare name token in every supported grammar.
const identifierKind = "identifier"

// ErrNoTree is reported when non-empty source arrives without a syntax tree.
var ErrNoTree = errors.New("no syntax tree for non-empty source")

// Extract summarizes the tree rooted at root. Empty or whitespace-only source
// yields an empty successful result without looking at the tree. Any fault
// while walking the tree yields an error result with no partial sequences.
func Extract(filePath string, source []byte, root Node, profile grammar.LanguageProfile) (result Result) {
	if len(bytes.TrimSpace(source)) == 0 {
		return empty(filePath)
	}

	defer func() {
		if r := recover(); r != nil {
			result = failure(filePath, fmt.Sprintf("traversal panic: %v", r))
		}
	}()

	if root == nil {
		return failure(filePath, ErrNoTree.Error())
	}

	w := &walker{source: source, profile: profile}
	if err := w.walk(root); err != nil {
		return failure(filePath, err.Error())
	}

	result = empty(filePath)
	result.Functions = append(result.Functions, w.functions...)
	result.Classes = append(result.Classes, w.classes...)
	result.Calls = append(result.Calls, w.calls...)
	result.EntryPoint = IsEntryPoint(result.FunctionNames())
	return result
}

// walker accumulates matches for one traversal.
type walker struct {
	source    []byte
	profile   grammar.LanguageProfile
	functions []Declaration
	classes   []Declaration
	calls     []string
}

// walk visits every node depth-first in pre-order. An explicit stack keeps deep
// trees off the goroutine stack; children are pushed in reverse so the leftmost
// child is visited first.
func (w *walker) walk(root Node) error {
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := w.visit(n); err != nil {
			return err
		}

		for i := n.ChildCount(); i > 0; i-- {
			if child := n.Child(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

func (w *walker) visit(n Node) error {
	switch w.profile.Classify(n.Kind()) {
	case grammar.CategoryFunction:
		decl, ok, err := w.declaration(n)
		if err != nil {
			return err
		}
		if ok {
			w.functions = append(w.functions, decl)
		}
	case grammar.CategoryClass:
		decl, ok, err := w.declaration(n)
		if err != nil {
			return err
		}
		if ok {
			w.classes = append(w.classes, decl)
		}
	case grammar.CategoryCall:
		callee := n.ChildByFieldName(CalleeField)
		if callee == nil || callee.Kind() != identifierKind {
			return nil
		}
		name, err := w.text(callee)
		if err != nil {
			return err
		}
		w.calls = append(w.calls, name)
	}
	return nil
}

// declaration resolves the identifier child of a function or class node.
// Anonymous declarations report ok=false and are not recorded.
func (w *walker) declaration(n Node) (Declaration, bool, error) {
	nameNode := n.ChildByFieldName(w.profile.NameField)
	if nameNode == nil {
		return Declaration{}, false, nil
	}
	name, err := w.text(nameNode)
	if err != nil {
		return Declaration{}, false, err
	}
	return Declaration{Name: name, Line: int(nameNode.StartRow()) + 1}, true, nil
}

func (w *walker) text(n Node) (string, error) {
	start, end := n.StartByte(), n.EndByte()
	if start > end || end > uint(len(w.source)) {
		return "", fmt.Errorf("%s node byte range [%d, %d) outside source of %d bytes",
			n.Kind(), start, end, len(w.source))
	}
	return decodeText(w.source[start:end]), nil
}
