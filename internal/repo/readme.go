package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrNoReadme is returned when a directory has no README.
var ErrNoReadme = errors.New("no README found")

// readmeNames in order of preference, compared case-insensitively.
var readmeNames = []string{"readme.md", "readme.rst", "readme.txt", "readme"}

// Readme is a README file found at a project root.
type Readme struct {
	Name      string // file name as found on disk
	Content   string
	Truncated bool
}

// FindReadme returns the preferred README at the root of dir, cut to at most
// maxBytes (0 keeps everything) without splitting a UTF-8 sequence.
func FindReadme(dir string, maxBytes int) (*Readme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	found := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if _, seen := found[lower]; !seen {
			found[lower] = entry.Name()
		}
	}

	for _, candidate := range readmeNames {
		name, ok := found[candidate]
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		readme := &Readme{Name: name}
		if maxBytes > 0 && len(data) > maxBytes {
			cut := maxBytes
			for cut > 0 && cut > maxBytes-utf8.UTFMax && !utf8.RuneStart(data[cut]) {
				cut--
			}
			data = data[:cut]
			readme.Truncated = true
		}
		readme.Content = string(data)
		return readme, nil
	}

	return nil, ErrNoReadme
}
