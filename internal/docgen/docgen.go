// Package docgen renders extraction results as a Markdown document.
package docgen

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/filetree"
)

// Input is everything a document is built from.
type Input struct {
	Title       string
	Target      string
	Revision    string // e.g. "main@1a2b3c4", empty when unknown
	Readme      string
	Tree        *filetree.Node
	Results     []extractor.Result
	GeneratedAt time.Time
}

type fileView struct {
	extractor.Result
	Dependencies []string
	Dependents   []string
}

type view struct {
	Title       string
	Target      string
	Revision    string
	Readme      string
	TreeLines   []string
	EntryPoints []string
	Files       []fileView
	Failed      []extractor.Result
	Edges       []Edge
	Cycles      [][]string
	Generated   string
	Analyzed    int
}

var funcs = template.FuncMap{
	"code": func(s string) string { return "`" + strings.ReplaceAll(s, "`", "'") + "`" },
	"join": strings.Join,
	"codes": func(items []string) string {
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = "`" + s + "`"
		}
		return strings.Join(quoted, ", ")
	},
}

var documentTemplate = template.Must(template.New("document").Funcs(funcs).Parse(`# {{.Title}}

{{if .Target}}Source: {{code .Target}}
{{end}}{{if .Revision}}Revision: {{code .Revision}}
{{end}}{{if .Generated}}Generated: {{.Generated}}
{{end}}
## Overview

{{if .Readme}}{{.Readme}}
{{else}}_No README found._
{{end}}
{{- if .TreeLines}}
## Project Structure

` + "```" + `
{{range .TreeLines}}{{.}}
{{end}}` + "```" + `
{{end}}
## Entry Points

{{if .EntryPoints}}{{range .EntryPoints}}- {{code .}}
{{end}}{{else}}_No entry points detected._
{{end}}
## Files

Analyzed {{.Analyzed}} file(s).
{{range .Files}}
### {{code .File}}{{if .EntryPoint}} (entry point){{end}}

{{if .Classes}}**Classes**

{{range .Classes}}- {{code .Name}} (line {{.Line}})
{{end}}
{{end}}{{if .Functions}}**Functions**

{{range .Functions}}- {{code .Name}} (line {{.Line}})
{{end}}
{{end}}{{if .Calls}}**Calls:** {{codes .Calls}}

{{end}}{{if .Dependencies}}**Uses:** {{codes .Dependencies}}

{{end}}{{if .Dependents}}**Used by:** {{codes .Dependents}}

{{end}}{{if not (or .Classes .Functions .Calls)}}_No declarations or calls._

{{end}}{{end}}
{{- if .Failed}}
## Files That Could Not Be Analyzed

{{range .Failed}}- {{code .File}}: {{.Error}}
{{end}}{{end}}
## Call Graph

{{if .Edges}}{{range .Edges}}- {{code .From}} → {{code .To}}
{{end}}{{else}}_No cross-file calls._
{{end}}
{{- if .Cycles}}
### Cycles

{{range .Cycles}}- {{codes .}}
{{end}}{{end}}`))

// Generate renders the document.
func Generate(in Input) (string, error) {
	graph, err := BuildCallGraph(in.Results)
	if err != nil {
		return "", err
	}

	v := view{
		Title:       in.Title,
		Target:      in.Target,
		Revision:    in.Revision,
		Readme:      strings.TrimSpace(in.Readme),
		TreeLines:   TreeLines(in.Tree),
		EntryPoints: []string{},
		Edges:       graph.Edges(),
		Cycles:      graph.Cycles(),
	}
	if v.Title == "" {
		v.Title = defaultTitle(in.Target)
	}
	if !in.GeneratedAt.IsZero() {
		v.Generated = in.GeneratedAt.UTC().Format(time.RFC1123)
	}

	for _, r := range in.Results {
		if r.Failed() {
			v.Failed = append(v.Failed, r)
			continue
		}
		if r.EntryPoint {
			v.EntryPoints = append(v.EntryPoints, r.File)
		}
		v.Files = append(v.Files, fileView{
			Result:       r,
			Dependencies: graph.Dependencies(r.File),
			Dependents:   graph.Dependents(r.File),
		})
	}
	v.Analyzed = len(in.Results)

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// TreeLines renders a tree as indented lines, directories suffixed with "/".
func TreeLines(root *filetree.Node) []string {
	if root == nil {
		return nil
	}

	lines := []string{root.Name + "/"}
	var walk func(n *filetree.Node, depth int)
	walk = func(n *filetree.Node, depth int) {
		for _, child := range n.Children {
			name := child.Name
			if child.IsDir() {
				name += "/"
			}
			lines = append(lines, strings.Repeat("  ", depth)+name)
			if child.IsDir() {
				walk(child, depth+1)
			}
		}
	}
	walk(root, 1)
	return lines
}

func defaultTitle(target string) string {
	name := path.Base(strings.TrimSuffix(strings.TrimRight(strings.ReplaceAll(target, "\\", "/"), "/"), ".git"))
	if name == "" || name == "." || name == "/" {
		return "Project Documentation"
	}
	return name + " Documentation"
}
