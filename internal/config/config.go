// Package config loads CodeGenius configuration from defaults, an optional
// .codegenius/config.yml and CODEGENIUS_* environment variables.
package config

import (
	"os"
	"runtime"
	"time"
)

// Config represents the complete codegenius configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Tree     TreeConfig     `yaml:"tree" mapstructure:"tree"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Repo     RepoConfig     `yaml:"repo" mapstructure:"repo"`
}

// AnalysisConfig controls batch extraction.
type AnalysisConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`       // concurrent extractions
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"` // cached results, 0 disables the cache
	MaxFiles  int `yaml:"max_files" mapstructure:"max_files"`   // ranked files analyzed per run, 0 = all
}

// TreeConfig controls directory enumeration.
type TreeConfig struct {
	IgnoreDirs []string `yaml:"ignore_dirs" mapstructure:"ignore_dirs"` // directory base names never entered
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`           // glob patterns on slash-relative paths
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowLocal      bool          `yaml:"allow_local" mapstructure:"allow_local"` // accept local paths and file:// targets over HTTP
	TreeRoot        string        `yaml:"tree_root" mapstructure:"tree_root"`     // directory /api/tree may list beneath
}

// StorageConfig controls persistence of analysis runs.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // SQLite file, relative to the project root
}

// RepoConfig controls how remote repositories are fetched.
type RepoConfig struct {
	WorkDir        string `yaml:"work_dir" mapstructure:"work_dir"`                 // parent directory for clones
	ReadmeMaxBytes int    `yaml:"readme_max_bytes" mapstructure:"readme_max_bytes"` // README bytes kept for the document
}

// DefaultIgnoreDirs are the housekeeping directories the file tree skips.
var DefaultIgnoreDirs = []string{".git", "node_modules", "__pycache__", ".venv", "build", "dist"}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:   runtime.NumCPU(),
			CacheSize: 1024,
			MaxFiles:  50,
		},
		Tree: TreeConfig{
			IgnoreDirs: append([]string{}, DefaultIgnoreDirs...),
			Ignore:     []string{},
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    ".codegenius/runs.db",
		},
		Repo: RepoConfig{
			WorkDir:        os.TempDir(),
			ReadmeMaxBytes: 16 * 1024,
		},
	}
}
