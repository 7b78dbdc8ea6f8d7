// Package filetree enumerates a directory into a nested name/type tree.
package filetree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Node types.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Node is one entry of the tree. Children is nil for files and non-nil for
// directories.
type Node struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Children []*Node `json:"children,omitempty"`
}

// MarshalJSON always emits children for directories, even when empty, and
// never for files.
func (n *Node) MarshalJSON() ([]byte, error) {
	type file struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	type directory struct {
		Name     string  `json:"name"`
		Type     string  `json:"type"`
		Children []*Node `json:"children"`
	}

	if !n.IsDir() {
		return json.Marshal(file{Name: n.Name, Type: n.Type})
	}
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(directory{Name: n.Name, Type: n.Type, Children: children})
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Type == TypeDirectory
}

// Options controls which entries Build keeps.
type Options struct {
	// IgnoreDirs lists directory base names that are never entered.
	IgnoreDirs []string

	// Ignore lists glob patterns matched against slash-separated paths
	// relative to the root. A directory matching "dir/**" is skipped whole.
	Ignore []string
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

type builder struct {
	root       string
	ignoreDirs map[string]bool
	patterns   []compiledPattern
}

// Build walks root and returns its tree. Children are sorted by name.
// Directories that cannot be read are kept as empty directories, and
// symlinks are listed as files without being followed.
func Build(root string, opts Options) (*Node, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	b := &builder{
		root:       root,
		ignoreDirs: make(map[string]bool, len(opts.IgnoreDirs)),
	}
	for _, name := range opts.IgnoreDirs {
		b.ignoreDirs[name] = true
	}

	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		b.patterns = append(b.patterns, compiledPattern{pattern: pattern, glob: g})
	}

	name := filepath.Base(filepath.Clean(root))
	return b.directory(root, "", name), nil
}

func (b *builder) directory(dir, rel, name string) *Node {
	node := &Node{Name: name, Type: TypeDirectory, Children: []*Node{}}

	// ReadDir returns the entries it read before failing; a permission
	// error leaves none.
	entries, err := os.ReadDir(dir)
	if err != nil && (errors.Is(err, fs.ErrPermission) || len(entries) == 0) {
		return node
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}

		// DirEntry.IsDir does not follow symlinks.
		if entry.IsDir() {
			if b.ignoreDirs[entry.Name()] || b.shouldIgnore(childRel, true) {
				continue
			}
			node.Children = append(node.Children, b.directory(filepath.Join(dir, entry.Name()), childRel, entry.Name()))
			continue
		}

		if b.shouldIgnore(childRel, false) {
			continue
		}
		node.Children = append(node.Children, &Node{Name: entry.Name(), Type: TypeFile})
	}

	return node
}

// shouldIgnore checks if a path matches any ignore pattern.
func (b *builder) shouldIgnore(relPath string, isDir bool) bool {
	if matchesAnyPattern(relPath, b.patterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return isDir && matchesAnyPattern(relPath+"/**", b.patterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(relPath string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(relPath) {
			return true
		}
	}

	// "**/*.md" should match both "README.md" and "docs/guide.md"
	if !strings.Contains(relPath, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				if simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && simplified.Match(relPath) {
					return true
				}
			}
		}
	}

	return false
}

// Files returns the slash-separated paths of every file below n, relative to
// n, in pre-order.
func (n *Node) Files() []string {
	files := []string{}
	n.collect("", &files)
	return files
}

func (n *Node) collect(prefix string, files *[]string) {
	for _, child := range n.Children {
		rel := child.Name
		if prefix != "" {
			rel = path.Join(prefix, child.Name)
		}
		if child.IsDir() {
			child.collect(rel, files)
			continue
		}
		*files = append(*files, rel)
	}
}

// Count returns the number of files and directories below n, n excluded.
func (n *Node) Count() (files, dirs int) {
	for _, child := range n.Children {
		if child.IsDir() {
			f, d := child.Count()
			files += f
			dirs += d + 1
			continue
		}
		files++
	}
	return files, dirs
}
