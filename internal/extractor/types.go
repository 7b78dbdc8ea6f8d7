package extractor

import "encoding/json"

// Node is the read-only view of a concrete syntax tree node that the
// extractor walks. The tree itself is built elsewhere.
type Node interface {
	Kind() string
	ChildCount() uint
	Child(i uint) Node
	// ChildByFieldName returns nil when the node has no child under name.
	ChildByFieldName(name string) Node
	StartByte() uint
	EndByte() uint
	// StartRow is the 0-based line the node starts on.
	StartRow() uint
}

// Declaration is a named function or class found in a file.
type Declaration struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Result is the structural summary of one file. Exactly one of the success
// fields (Functions, Classes, Calls, EntryPoint) or Error is meaningful.
type Result struct {
	File       string
	Functions  []Declaration
	Classes    []Declaration
	Calls      []string
	EntryPoint bool
	Error      string
}

// Failed reports whether r is the error variant.
func (r Result) Failed() bool {
	return r.Error != ""
}

type successJSON struct {
	File       string        `json:"file"`
	Functions  []Declaration `json:"functions"`
	Classes    []Declaration `json:"classes"`
	Calls      []string      `json:"calls"`
	EntryPoint bool          `json:"entry_point"`
}

type errorJSON struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// MarshalJSON emits only the populated variant so consumers never see a
// result carrying both sequences and an error.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(errorJSON{File: r.File, Error: r.Error})
	}
	return json.Marshal(successJSON{
		File:       r.File,
		Functions:  nonNilDecls(r.Functions),
		Classes:    nonNilDecls(r.Classes),
		Calls:      nonNilStrings(r.Calls),
		EntryPoint: r.EntryPoint,
	})
}

// UnmarshalJSON accepts either variant.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		File       string        `json:"file"`
		Functions  []Declaration `json:"functions"`
		Classes    []Declaration `json:"classes"`
		Calls      []string      `json:"calls"`
		EntryPoint bool          `json:"entry_point"`
		Error      string        `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != "" {
		*r = failure(raw.File, raw.Error)
		return nil
	}
	*r = Result{
		File:       raw.File,
		Functions:  nonNilDecls(raw.Functions),
		Classes:    nonNilDecls(raw.Classes),
		Calls:      nonNilStrings(raw.Calls),
		EntryPoint: raw.EntryPoint,
	}
	return nil
}

// FunctionNames returns the recorded function names in traversal order.
func (r Result) FunctionNames() []string {
	names := make([]string, len(r.Functions))
	for i, f := range r.Functions {
		names[i] = f.Name
	}
	return names
}

func empty(file string) Result {
	return Result{
		File:      file,
		Functions: []Declaration{},
		Classes:   []Declaration{},
		Calls:     []string{},
	}
}

func failure(file, msg string) Result {
	return Result{File: file, Error: msg}
}

// Failure builds the error variant for callers that fail before extraction,
// such as a file that cannot be read or parsed.
func Failure(file string, err error) Result {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return failure(file, msg)
}

func nonNilDecls(d []Declaration) []Declaration {
	if d == nil {
		return []Declaration{}
	}
	return d
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
