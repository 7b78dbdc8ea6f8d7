// Package ranking orders candidate files so the most informative ones are
// analyzed first.
package ranking

import (
	"path"
	"sort"
	"strings"

	"github.com/mvp-joe/codegenius/internal/grammar"
)

// Score weights.
const (
	entryNameBonus = 50
	depthPenalty   = 5
	testPenalty    = 40
)

var entryNames = map[string]bool{
	"main":     true,
	"app":      true,
	"index":    true,
	"server":   true,
	"cli":      true,
	"__main__": true,
}

var testDirs = map[string]bool{
	"test":      true,
	"tests":     true,
	"__tests__": true,
	"spec":      true,
	"specs":     true,
	"fixtures":  true,
	"testdata":  true,
	"examples":  true,
}

// Scored is a ranked file.
type Scored struct {
	Path  string `json:"path"`
	Score int    `json:"score"`
}

// Options controls Rank.
type Options struct {
	// Limit caps the number of files returned. Zero returns all.
	Limit int
}

// Rank scores the supported files among paths (slash-separated, relative to
// the project root) and returns them best first. Equal scores are ordered by
// path.
func Rank(paths []string, opts Options) []Scored {
	scored := make([]Scored, 0, len(paths))
	for _, p := range paths {
		if !grammar.Supported(p) {
			continue
		}
		scored = append(scored, Scored{Path: p, Score: Score(p)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Path < scored[j].Path
	})

	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored
}

// Score rates a single slash-separated relative path.
func Score(p string) int {
	p = strings.TrimPrefix(path.Clean(p), "./")
	dir, base := path.Split(p)
	stem := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))

	score := 0
	if entryNames[stem] {
		score += entryNameBonus
	}

	depth := strings.Count(strings.Trim(dir, "/"), "/")
	if dir != "" {
		depth++
	}
	score -= depthPenalty * depth

	if isTestPath(dir, stem) {
		score -= testPenalty
	}
	return score
}

func isTestPath(dir, stem string) bool {
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if testDirs[strings.ToLower(segment)] {
			return true
		}
	}

	return strings.HasPrefix(stem, "test_") ||
		strings.HasSuffix(stem, "_test") ||
		strings.HasSuffix(stem, ".test") ||
		strings.HasSuffix(stem, ".spec") ||
		stem == "conftest"
}
