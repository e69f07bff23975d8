// Package publish uploads the contents of a static root to an object store
// such as Cloudflare R2. Files whose SHA-256 already matches the stored
// object are skipped.
package publish

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bilgisen/staticd/internal/logger"
	"github.com/bilgisen/staticd/internal/static"
	"github.com/bilgisen/staticd/internal/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of files published at once when
// Options.Concurrency is not set.
const DefaultConcurrency = 8

// Object describes one upload
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	CacheControl string
	SHA256       string
}

// ObjectStore is what the publisher needs from a bucket
type ObjectStore interface {
	// Checksum returns the SHA-256 recorded for key. found is false when the
	// key does not exist.
	Checksum(ctx context.Context, key string) (sum string, found bool, err error)
	Put(ctx context.Context, obj Object, body io.Reader) error
}

// Options controls a publish run
type Options struct {
	Prefix       string
	Concurrency  int
	DryRun       bool
	Dotfiles     bool
	CacheControl string
}

// Result lists the keys a run uploaded (or would upload, on a dry run) and
// the keys it left alone.
type Result struct {
	Uploaded []string `json:"uploaded"`
	Skipped  []string `json:"skipped"`
}

// Publisher copies a directory tree into an ObjectStore
type Publisher struct {
	store ObjectStore
	opts  Options
}

// New creates a publisher
func New(store ObjectStore, opts Options) *Publisher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")

	return &Publisher{store: store, opts: opts}
}

// Publish uploads every regular file under dir. The first failure cancels
// the remaining uploads.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Result, error) {
	files, err := collect(dir, p.opts.Dotfiles)
	if err != nil {
		return nil, err
	}

	result := &Result{Uploaded: []string{}, Skipped: []string{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for _, rel := range files {
		g.Go(func() error {
			key, uploaded, err := p.publishFile(ctx, dir, rel)
			if err != nil {
				return fmt.Errorf("failed to publish %s: %w", rel, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if uploaded {
				result.Uploaded = append(result.Uploaded, key)
			} else {
				result.Skipped = append(result.Skipped, key)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(result.Uploaded)
	sort.Strings(result.Skipped)

	logger.Get().Info().
		Int("uploaded", len(result.Uploaded)).
		Int("skipped", len(result.Skipped)).
		Bool("dry_run", p.opts.DryRun).
		Msg("Publish complete")

	return result, nil
}

// Key maps a slash-separated path relative to the root onto its object key
func (p *Publisher) Key(rel string) string {
	if p.opts.Prefix == "" {
		return rel
	}
	return path.Join(p.opts.Prefix, rel)
}

func (p *Publisher) publishFile(ctx context.Context, dir, rel string) (string, bool, error) {
	key := p.Key(rel)
	name := filepath.Join(dir, filepath.FromSlash(rel))

	sum, err := utils.HashFile(name)
	if err != nil {
		return key, false, err
	}

	stored, found, err := p.store.Checksum(ctx, key)
	if err != nil {
		return key, false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	if found && stored == sum {
		return key, false, nil
	}

	log := logger.Get()
	if p.opts.DryRun {
		log.Debug().Str("key", key).Msg("Would upload")
		return key, true, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return key, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return key, false, err
	}

	err = p.store.Put(ctx, Object{
		Key:          key,
		Size:         info.Size(),
		ContentType:  static.ContentType(rel),
		CacheControl: p.opts.CacheControl,
		SHA256:       sum,
	}, f)
	if err != nil {
		return key, false, err
	}

	log.Debug().Str("key", key).Int64("size", info.Size()).Msg("Uploaded")
	return key, true, nil
}

// collect lists regular files under dir as slash-separated relative paths.
// Dot-prefixed files and directories are left out unless dotfiles is set.
func collect(dir string, dotfiles bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && !dotfiles && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	return files, nil
}
