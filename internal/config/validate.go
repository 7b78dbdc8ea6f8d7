package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidLimit indicates a negative size or count limit
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrEmptyAddr indicates a missing server listen address
	ErrEmptyAddr = errors.New("empty server address")

	// ErrEmptyStoragePath indicates storage is enabled without a database path
	ErrEmptyStoragePath = errors.New("empty storage path")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}

	if err := validateTree(&cfg.Tree); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, fmt.Errorf("%w: server.addr is required", ErrEmptyAddr))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: shutdown_timeout cannot be negative, got %s", ErrInvalidLimit, cfg.Server.ShutdownTimeout))
	}

	if cfg.Storage.Enabled && strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.path is required when storage is enabled", ErrEmptyStoragePath))
	}

	if cfg.Repo.ReadmeMaxBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: readme_max_bytes cannot be negative, got %d", ErrInvalidLimit, cfg.Repo.ReadmeMaxBytes))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	// Zero disables the cache / the file cap
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidLimit, cfg.CacheSize))
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: max_files cannot be negative, got %d", ErrInvalidLimit, cfg.MaxFiles))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateTree(cfg *TreeConfig) error {
	var errs []error

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Each wrapped sentinel stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{msg: fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
