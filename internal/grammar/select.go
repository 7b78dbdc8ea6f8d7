package grammar

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is matched by every error Select returns.
var ErrUnsupported = errors.New("unsupported file extension")

// UnsupportedError carries the extension that had no profile.
type UnsupportedError struct {
	Extension string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupported, e.Extension)
}

// Is makes errors.Is(err, ErrUnsupported) true.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// registry is the profile table, in the order Profiles reports them.
var registry = []LanguageProfile{Python, JavaScript, TypeScript}

var byExtension = func() map[string]LanguageProfile {
	m := make(map[string]LanguageProfile)
	for _, p := range registry {
		for _, ext := range p.Extensions {
			m[ext] = p
		}
	}
	return m
}()

// Select resolves the profile for a file path from its extension. The
// extension is whatever follows the last '.' in the base name, lower-cased and
// trimmed of surrounding whitespace. Paths without a recognized extension
// return an *UnsupportedError.
func Select(filePath string) (LanguageProfile, error) {
	return SelectExtension(extensionOf(filePath))
}

// SelectExtension resolves a profile from an extension. A leading '.' is
// accepted, so ".PY", " py " and "py" all select Python.
func SelectExtension(ext string) (LanguageProfile, error) {
	key := normalizeExtension(ext)
	if p, ok := byExtension[key]; ok {
		return p, nil
	}
	return LanguageProfile{}, &UnsupportedError{Extension: key}
}

// Supported reports whether Select would return a profile for filePath.
func Supported(filePath string) bool {
	_, ok := byExtension[normalizeExtension(extensionOf(filePath))]
	return ok
}

// Profiles returns every registered profile.
func Profiles() []LanguageProfile {
	out := make([]LanguageProfile, len(registry))
	copy(out, registry)
	return out
}

// Extensions returns every recognized extension with a leading dot.
func Extensions() []string {
	var exts []string
	for _, p := range registry {
		for _, ext := range p.Extensions {
			exts = append(exts, "."+ext)
		}
	}
	return exts
}

// extensionOf returns "" for paths naming a directory with a trailing
// separator, so "dir.py/" is not Python.
func extensionOf(filePath string) string {
	filePath = strings.TrimSpace(filePath)
	if strings.HasSuffix(filePath, "/") || strings.HasSuffix(filePath, string(filepath.Separator)) {
		return ""
	}
	base := filepath.Base(filePath)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return base[i+1:]
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	return strings.TrimSpace(strings.TrimPrefix(ext, "."))
}
