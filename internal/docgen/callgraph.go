package docgen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// Edge is a file-level dependency: From calls a function that To declares.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CallGraph links files by the bare function names they call and declare.
type CallGraph struct {
	g graph.Graph[string, string]
}

// BuildCallGraph adds one vertex per successful result and an edge A→B
// whenever A calls a name that B declares as a function. Self-edges are
// dropped. Names declared by several files link to all of them.
func BuildCallGraph(results []extractor.Result) (*CallGraph, error) {
	g := graph.New(graph.StringHash, graph.Directed())

	declaredIn := make(map[string][]string)
	for _, r := range results {
		if r.Failed() {
			continue
		}
		if err := g.AddVertex(r.File); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add file %s: %w", r.File, err)
		}
		for _, fn := range r.Functions {
			declaredIn[fn.Name] = append(declaredIn[fn.Name], r.File)
		}
	}

	for _, r := range results {
		if r.Failed() {
			continue
		}
		for _, call := range r.Calls {
			for _, target := range declaredIn[call] {
				if target == r.File {
					continue
				}
				if err := g.AddEdge(r.File, target); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					return nil, fmt.Errorf("failed to link %s to %s: %w", r.File, target, err)
				}
			}
		}
	}

	return &CallGraph{g: g}, nil
}

// Dependencies returns the files file calls into, sorted.
func (c *CallGraph) Dependencies(file string) []string {
	adjacency, err := c.g.AdjacencyMap()
	if err != nil {
		return []string{}
	}
	return sortedKeys(adjacency[file])
}

// Dependents returns the files that call into file, sorted.
func (c *CallGraph) Dependents(file string) []string {
	predecessors, err := c.g.PredecessorMap()
	if err != nil {
		return []string{}
	}
	return sortedKeys(predecessors[file])
}

// Edges returns every edge sorted by From then To.
func (c *CallGraph) Edges() []Edge {
	edges, err := c.g.Edges()
	if err != nil {
		return []Edge{}
	}

	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{From: e.Source, To: e.Target})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Cycles returns groups of files that call each other in a loop. Each group
// and the list of groups are sorted.
func (c *CallGraph) Cycles() [][]string {
	components, err := graph.StronglyConnectedComponents(c.g)
	if err != nil {
		return [][]string{}
	}

	cycles := [][]string{}
	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		group := append([]string(nil), component...)
		sort.Strings(group)
		cycles = append(cycles, group)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Order returns the number of files in the graph.
func (c *CallGraph) Order() int {
	n, err := c.g.Order()
	if err != nil {
		return 0
	}
	return n
}

func sortedKeys(m map[string]graph.Edge[string]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
