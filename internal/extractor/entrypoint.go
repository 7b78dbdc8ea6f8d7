package extractor

import "strings"

// entryPointNames are function names treated as entry points on an exact match.
var entryPointNames = map[string]bool{
	"main":     true,
	"__main__": true,
	"start":    true,
	"run":      true,
	"init":     true,
}

// IsEntryPoint reports whether any of the function names looks like a program
// entry: it contains "main" in any case, or is exactly one of main, __main__,
// start, run or init. Names like "maintain" match too.
func IsEntryPoint(functionNames []string) bool {
	for _, name := range functionNames {
		if strings.Contains(strings.ToLower(name), "main") || entryPointNames[name] {
			return true
		}
	}
	return false
}
