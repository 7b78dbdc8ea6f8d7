// Package syntax builds concrete syntax trees with tree-sitter and exposes
// them through the extractor.Node interface.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// ErrUnknownGrammar is returned when no tree-sitter grammar is registered
// under the requested name.
var ErrUnknownGrammar = errors.New("unknown grammar")

// Parser builds syntax trees for the registered grammars. A Parser is safe for
// concurrent use; each Parse call gets its own tree-sitter parser.
type Parser struct {
	languages map[string]*sitter.Language
}

// NewParser creates a parser with the python, javascript and typescript
// grammars registered under their profile names.
func NewParser() *Parser {
	return &Parser{
		languages: map[string]*sitter.Language{
			"python":     sitter.NewLanguage(python.Language()),
			"javascript": sitter.NewLanguage(javascript.Language()),
			"typescript": sitter.NewLanguage(typescript.LanguageTypescript()),
		},
	}
}

// Parse builds a tree for source with the named grammar. The caller must Close
// the returned tree.
func (p *Parser) Parse(ctx context.Context, grammarName string, source []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	language, ok := p.languages[grammarName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGrammar, grammarName)
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set %s grammar: %w", grammarName, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", grammarName)
	}

	return &Tree{tree: tree}, nil
}

// Tree owns a parsed tree-sitter tree.
type Tree struct {
	tree *sitter.Tree
}

// Root returns the root node.
func (t *Tree) Root() extractor.Node {
	return wrap(t.tree.RootNode())
}

// Close releases the tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}
