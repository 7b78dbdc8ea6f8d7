// Package repo resolves a documentation target to a directory on disk,
// shallow-cloning remote repositories with go-git.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	ErrEmptyTarget  = errors.New("target cannot be empty")
	ErrNotFound     = errors.New("path not found")
	ErrNotDirectory = errors.New("path is not a directory")
	ErrCloneFailed  = errors.New("clone failed")
	ErrNotGitRepo   = errors.New("path is not a git repository")
	ErrNoHead       = errors.New("repository has no HEAD reference")
)

var remotePrefixes = []string{"https://", "http://", "ssh://", "git://", "git@", "file://"}

// IsRemote reports whether target names a repository to clone rather than a
// local directory.
func IsRemote(target string) bool {
	target = strings.TrimSpace(target)
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return strings.HasPrefix(target, "github.com/") ||
		strings.HasPrefix(target, "gitlab.com/") ||
		strings.HasPrefix(target, "bitbucket.org/")
}

// NormalizeURL adds https:// to bare host/owner/repo targets.
func NormalizeURL(target string) string {
	target = strings.TrimSpace(target)
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(target, prefix) {
			return target
		}
	}
	return "https://" + target
}

// cloneFunc performs the clone; tests replace it.
var cloneFunc = func(ctx context.Context, dir, url string) error {
	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	return err
}

// Checkout is a resolved target.
type Checkout struct {
	Target string // as given
	Dir    string // absolute directory holding the sources
	Cloned bool   // Dir is a temporary clone owned by the checkout

	cleanupOnce sync.Once
	cleanupErr  error
}

// Resolve turns target into a directory. Local directories are used in place;
// remote targets are shallow-cloned into a new temporary directory under
// workDir. Call Cleanup when done.
func Resolve(ctx context.Context, target, workDir string) (*Checkout, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrEmptyTarget
	}

	if !IsRemote(target) {
		return resolveLocal(target)
	}

	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	dir, err := os.MkdirTemp(workDir, "codegenius-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}

	url := NormalizeURL(target)
	if err := cloneFunc(ctx, dir, url); err != nil {
		os.RemoveAll(dir)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCloneFailed, url, err)
	}

	return &Checkout{Target: target, Dir: dir, Cloned: true}, nil
}

func resolveLocal(target string) (*Checkout, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, target)
	}

	return &Checkout{Target: target, Dir: abs}, nil
}

// Cleanup removes a cloned directory. Local checkouts are left untouched.
// Safe to call multiple times.
func (c *Checkout) Cleanup() error {
	c.cleanupOnce.Do(func() {
		if c.Cloned {
			c.cleanupErr = os.RemoveAll(c.Dir)
		}
	})
	return c.cleanupErr
}

// Revision identifies the commit a checkout is at.
type Revision struct {
	Branch string // empty for a detached HEAD
	Hash   string
}

// Short returns the abbreviated hash.
func (r Revision) Short() string {
	if len(r.Hash) > 7 {
		return r.Hash[:7]
	}
	return r.Hash
}

// String returns "branch@short", or the short hash alone for a detached HEAD.
func (r Revision) String() string {
	if r.Branch == "" {
		return r.Short()
	}
	return r.Branch + "@" + r.Short()
}

// Revision reads HEAD of the checkout.
// Returns ErrNotGitRepo if the directory is not a git repository.
// Returns ErrNoHead if the repository has no commits.
func (c *Checkout) Revision() (Revision, error) {
	r, err := gogit.PlainOpen(c.Dir)
	if err != nil {
		return Revision{}, ErrNotGitRepo
	}

	ref, err := r.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Revision{}, ErrNoHead
		}
		return Revision{}, err
	}

	rev := Revision{Hash: ref.Hash().String()}
	if ref.Name().IsBranch() {
		rev.Branch = ref.Name().Short()
	}
	return rev, nil
}
