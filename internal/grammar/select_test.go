package grammar

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Select:
// - py/js/ts select their profiles
// - extension matching ignores case and surrounding whitespace
// - the final dot wins for multi-dot names
// - unsupported and missing extensions return *UnsupportedError matching ErrUnsupported
// - a path ending in a separator names a directory and selects nothing
// - repeated selection is deterministic
// - TypeScript kind sets are a superset of JavaScript's

func TestSelect_KnownExtensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"main.py", "python"},
		{"src/app.js", "javascript"},
		{"src/app.ts", "typescript"},
		{"pkg/archive.tar.py", "python"},
		{"UPPER.PY", "python"},
		{"mixed.Ts", "typescript"},
		{"spaced. js ", "javascript"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := Select(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestSelectExtension_NormalizesInput(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{".PY", " py ", "py", ".py", "Py"} {
		p, err := SelectExtension(ext)
		require.NoError(t, err, ext)
		assert.Equal(t, Python.Name, p.Name, ext)
	}
}

func TestSelect_Unsupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		ext  string
	}{
		{"README.md", "md"},
		{"package.json", "json"},
		{"Makefile", ""},
		{"", ""},
		{"trailing.", ""},
		{"dir.py/Makefile", ""},
		{"component.tsx", "tsx"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := Select(tt.path)
			require.Error(t, err)
			assert.True(t, p.IsZero())
			assert.True(t, errors.Is(err, ErrUnsupported))

			var unsupported *UnsupportedError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, tt.ext, unsupported.Extension)
			assert.False(t, Supported(tt.path))
		})
	}
}

func TestSelect_TrailingSeparator(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"dir.py/", "src/app.ts/", " lib.js/ ", "dir.py" + string(filepath.Separator)} {
		_, err := Select(path)
		assert.ErrorIs(t, err, ErrUnsupported, path)

		var unsupported *UnsupportedError
		require.ErrorAs(t, err, &unsupported, path)
		assert.Equal(t, "", unsupported.Extension, path)
		assert.False(t, Supported(path), path)
	}

	p, err := Select("dir.py/main.py")
	require.NoError(t, err)
	assert.Equal(t, "python", p.Name)
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()

	first, err1 := Select("notes.md")
	second, err2 := Select("notes.md")
	assert.Equal(t, first, second)
	assert.Equal(t, err1.Error(), err2.Error())

	a, err := Select("x.ts")
	require.NoError(t, err)
	b, err := Select("x.ts")
	require.NoError(t, err)
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, a.FunctionKinds, b.FunctionKinds)
}

func TestTypeScript_SupersetOfJavaScript(t *testing.T) {
	t.Parallel()

	assert.Subset(t, TypeScript.FunctionKinds, JavaScript.FunctionKinds)
	assert.Subset(t, TypeScript.ClassKinds, JavaScript.ClassKinds)
	assert.Subset(t, TypeScript.CallKinds, JavaScript.CallKinds)
	assert.Greater(t, len(TypeScript.FunctionKinds), len(JavaScript.FunctionKinds))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryFunction, Python.Classify("function_definition"))
	assert.Equal(t, CategoryClass, Python.Classify("class_definition"))
	assert.Equal(t, CategoryCall, Python.Classify("call"))
	assert.Equal(t, CategoryNone, Python.Classify("call_expression"))
	assert.Equal(t, CategoryCall, JavaScript.Classify("call_expression"))
	assert.Equal(t, CategoryClass, TypeScript.Classify("interface_declaration"))
}

func TestClassify_PriorityOnOverlap(t *testing.T) {
	t.Parallel()

	// A profile built without newProfile still classifies through the fallback table.
	overlap := LanguageProfile{
		Name:          "overlap",
		FunctionKinds: []string{"thing"},
		ClassKinds:    []string{"thing", "shape"},
		CallKinds:     []string{"thing", "shape", "invoke"},
	}

	assert.Equal(t, CategoryFunction, overlap.Classify("thing"))
	assert.Equal(t, CategoryClass, overlap.Classify("shape"))
	assert.Equal(t, CategoryCall, overlap.Classify("invoke"))
	assert.Equal(t, "function", CategoryFunction.String())
	assert.Equal(t, "none", CategoryNone.String())
}

func TestExtensionsAndProfiles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{".py", ".js", ".ts"}, Extensions())

	profiles := Profiles()
	require.Len(t, profiles, 3)
	profiles[0] = LanguageProfile{}
	assert.Equal(t, "python", Profiles()[0].Name, "Profiles must return a copy")
}
