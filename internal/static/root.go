// Package static resolves request paths against a read-only directory.
//
// A Root never serves anything outside its directory: paths whose ".."
// segments climb above the root are rejected before touching the filesystem,
// and symlinks are resolved and checked against the root afterwards.
package static

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	// ErrNotFound means the path has no regular file behind it.
	ErrNotFound = errors.New("static: file not found")
	// ErrOutsideRoot means the path would resolve above the root directory.
	ErrOutsideRoot = errors.New("static: path escapes root")
)

// DefaultIndex is served for directory requests.
const DefaultIndex = "index.html"

// Options tune how a Root resolves paths.
type Options struct {
	// Index is the file served for directory requests. Default: index.html
	Index string
	// Dotfiles allows path segments starting with ".". Default: false
	Dotfiles bool
}

// Root is a static root directory.
type Root struct {
	dir      string
	index    string
	dotfiles bool
}

// NewRoot opens dir as a static root. dir must exist and be a directory.
func NewRoot(dir string, opts Options) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static root %s: %w", dir, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("static root %s: %w", dir, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("static root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static root %s is not a directory", dir)
	}

	if opts.Index == "" {
		opts.Index = DefaultIndex
	}

	return &Root{
		dir:      resolved,
		index:    opts.Index,
		dotfiles: opts.Dotfiles,
	}, nil
}

// Dir returns the absolute, symlink-free root path.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve maps a URL path to a regular file under the root. Directories
// resolve to their index file.
func (r *Root) Resolve(urlPath string) (string, fs.FileInfo, error) {
	if strings.IndexByte(urlPath, 0) >= 0 {
		return "", nil, ErrNotFound
	}

	// Clean relative to the root so ".." that stays inside is allowed and
	// ".." that climbs above it is caught rather than clamped.
	rel := path.Clean("./" + urlPath)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", nil, ErrOutsideRoot
	}

	if !r.dotfiles {
		for _, segment := range strings.Split(rel, "/") {
			if len(segment) > 1 && segment[0] == '.' {
				return "", nil, ErrNotFound
			}
		}
	}

	name, info, err := r.stat(filepath.Join(r.dir, filepath.FromSlash(rel)))
	if err != nil {
		return "", nil, err
	}

	if info.IsDir() {
		name, info, err = r.stat(filepath.Join(name, r.index))
		if err != nil {
			return "", nil, err
		}
	}

	if !info.Mode().IsRegular() {
		return "", nil, ErrNotFound
	}

	return name, info, nil
}

// Open resolves urlPath and opens the file. The caller closes it.
func (r *Root) Open(urlPath string) (*os.File, fs.FileInfo, error) {
	name, _, err := r.Resolve(urlPath)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, classify(err)
	}

	// Stat the open handle; the file may have changed since Resolve.
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, classify(err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotFound
	}

	return f, info, nil
}

// stat follows symlinks in name and checks the target is still under the root.
func (r *Root) stat(name string) (string, fs.FileInfo, error) {
	resolved, err := filepath.EvalSymlinks(name)
	if err != nil {
		return "", nil, classify(err)
	}
	if !r.contains(resolved) {
		return "", nil, ErrOutsideRoot
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, classify(err)
	}
	return resolved, info, nil
}

func (r *Root) contains(name string) bool {
	rel, err := filepath.Rel(r.dir, name)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// classify maps filesystem errors that mean "nothing there" onto ErrNotFound.
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.ENAMETOOLONG):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
