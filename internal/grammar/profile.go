// Package grammar maps source files to the language profile used to classify
// their syntax tree nodes.
package grammar

// Category is the structural role a node kind plays in a profile.
type Category int

const (
	CategoryNone Category = iota
	CategoryFunction
	CategoryClass
	CategoryCall
)

// String returns the lowercase name of the category.
func (c Category) String() string {
	switch c {
	case CategoryFunction:
		return "function"
	case CategoryClass:
		return "class"
	case CategoryCall:
		return "call"
	default:
		return "none"
	}
}

// LanguageProfile describes which node kinds of one grammar denote functions,
// classes and calls. Profiles are plain values and are never mutated after
// package initialization.
type LanguageProfile struct {
	// Name is the variant name and also the grammar key used by the parse layer.
	Name string

	// Extensions lists the extensions (without the leading dot) that select this profile.
	Extensions []string

	FunctionKinds []string
	ClassKinds    []string
	CallKinds     []string

	// NameField is the field holding a declaration's identifier node.
	NameField string

	kinds map[string]Category
}

// Classify returns the category of a node kind. Function kinds win over class
// kinds, which win over call kinds, if a profile ever lists a kind twice.
func (p LanguageProfile) Classify(kind string) Category {
	if p.kinds != nil {
		return p.kinds[kind]
	}
	return buildKindTable(p)[kind]
}

// IsZero reports whether p is the zero profile.
func (p LanguageProfile) IsZero() bool {
	return p.Name == ""
}

// buildKindTable flattens the three kind sets into a lookup table, applying
// them in reverse priority so higher-priority categories overwrite lower ones.
func buildKindTable(p LanguageProfile) map[string]Category {
	table := make(map[string]Category, len(p.FunctionKinds)+len(p.ClassKinds)+len(p.CallKinds))
	for _, k := range p.CallKinds {
		table[k] = CategoryCall
	}
	for _, k := range p.ClassKinds {
		table[k] = CategoryClass
	}
	for _, k := range p.FunctionKinds {
		table[k] = CategoryFunction
	}
	return table
}

func newProfile(p LanguageProfile) LanguageProfile {
	p.kinds = buildKindTable(p)
	return p
}

// union returns base followed by the extra kinds not already present.
func union(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, k := range append(append([]string{}, base...), extra...) {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

var (
	javaScriptFunctionKinds = []string{
		"function_declaration",
		"generator_function_declaration",
		"method_definition",
		"arrow_function",
		"function_expression",
		"generator_function",
	}
	javaScriptClassKinds = []string{"class_declaration", "class"}
	javaScriptCallKinds  = []string{"call_expression"}
)

// Python covers .py sources.
var Python = newProfile(LanguageProfile{
	Name:          "python",
	Extensions:    []string{"py"},
	FunctionKinds: []string{"function_definition", "async_function_definition"},
	ClassKinds:    []string{"class_definition"},
	CallKinds:     []string{"call"},
	NameField:     "name",
})

// JavaScript covers .js sources.
var JavaScript = newProfile(LanguageProfile{
	Name:          "javascript",
	Extensions:    []string{"js"},
	FunctionKinds: javaScriptFunctionKinds,
	ClassKinds:    javaScriptClassKinds,
	CallKinds:     javaScriptCallKinds,
	NameField:     "name",
})

// TypeScript covers .ts sources. Its kind sets are a superset of JavaScript's
// because the typed grammar adds signature and abstract declaration nodes.
// Overload signatures (function_signature) are left out so an overloaded
// function is recorded once, at its implementation.
var TypeScript = newProfile(LanguageProfile{
	Name:       "typescript",
	Extensions: []string{"ts"},
	FunctionKinds: union(javaScriptFunctionKinds,
		"method_signature",
		"abstract_method_signature",
	),
	ClassKinds: union(javaScriptClassKinds,
		"abstract_class_declaration",
		"interface_declaration",
	),
	CallKinds: union(javaScriptCallKinds),
	NameField: "name",
})
