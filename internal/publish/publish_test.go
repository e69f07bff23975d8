package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bilgisen/staticd/internal/config"
	"github.com/bilgisen/staticd/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	data []byte
	obj  Object
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	puts    int
	failKey string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]memObject)}
}

func (m *memStore) Checksum(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key]
	if !ok {
		return "", false, nil
	}
	return o.obj.SHA256, true, nil
}

func (m *memStore) Put(_ context.Context, obj Object, body io.Reader) error {
	if obj.Key == m.failKey {
		return errors.New("bucket unavailable")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = memObject{data: data, obj: obj}
	m.puts++
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}
	return dir
}

var site = map[string]string{
	"index.html":       "<h1>home</h1>",
	"client-bundle.js": "console.log(1)",
	"docs/guide.txt":   "read me",
	".gitignore":       "node_modules",
	".cache/blob":      "x",
}

func TestPublish(t *testing.T) {
	dir := writeTree(t, site)
	store := newMemStore()
	p := New(store, Options{CacheControl: "public, max-age=60"})

	result, err := p.Publish(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"client-bundle.js", "docs/guide.txt", "index.html"}, result.Uploaded)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 3, store.puts)

	index := store.objects["index.html"]
	assert.Equal(t, []byte("<h1>home</h1>"), index.data)
	assert.Equal(t, "text/html; charset=utf-8", index.obj.ContentType)
	assert.Equal(t, "public, max-age=60", index.obj.CacheControl)
	assert.Equal(t, int64(len("<h1>home</h1>")), index.obj.Size)
	assert.Equal(t, utils.Hash([]byte("<h1>home</h1>")), index.obj.SHA256)
}

func TestPublishSkipsUnchanged(t *testing.T) {
	dir := writeTree(t, site)
	store := newMemStore()
	p := New(store, Options{Concurrency: 2})

	_, err := p.Publish(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>new</h1>"), 0o644))

	result, err := p.Publish(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html"}, result.Uploaded)
	assert.Equal(t, []string{"client-bundle.js", "docs/guide.txt"}, result.Skipped)
	assert.Equal(t, 4, store.puts)
	assert.Equal(t, []byte("<h1>new</h1>"), store.objects["index.html"].data)
}

func TestPublishOptions(t *testing.T) {
	t.Run("prefix", func(t *testing.T) {
		store := newMemStore()
		p := New(store, Options{Prefix: "/releases/v1/"})

		result, err := p.Publish(context.Background(), writeTree(t, site))
		require.NoError(t, err)

		assert.Equal(t, []string{"releases/v1/client-bundle.js", "releases/v1/docs/guide.txt", "releases/v1/index.html"}, result.Uploaded)
		assert.Contains(t, store.objects, "releases/v1/docs/guide.txt")
	})

	t.Run("dry run", func(t *testing.T) {
		store := newMemStore()
		p := New(store, Options{DryRun: true})

		result, err := p.Publish(context.Background(), writeTree(t, site))
		require.NoError(t, err)

		assert.Len(t, result.Uploaded, 3)
		assert.Zero(t, store.puts)
	})

	t.Run("dotfiles", func(t *testing.T) {
		store := newMemStore()
		p := New(store, Options{Dotfiles: true})

		result, err := p.Publish(context.Background(), writeTree(t, site))
		require.NoError(t, err)

		assert.Contains(t, result.Uploaded, ".gitignore")
		assert.Contains(t, result.Uploaded, ".cache/blob")
	})
}

func TestPublishErrors(t *testing.T) {
	t.Run("upload failure", func(t *testing.T) {
		store := newMemStore()
		store.failKey = "docs/guide.txt"

		result, err := New(store, Options{}).Publish(context.Background(), writeTree(t, site))

		assert.Nil(t, result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "docs/guide.txt")
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := New(newMemStore(), Options{}).Publish(context.Background(), filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

// fakeBucket is a minimal path-style S3 endpoint for one bucket
type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string][]byte
	sums     map[string]string
	types    map[string]string
	lastAuth string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/assets/")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAuth = r.Header.Get("Authorization")

	switch r.Method {
	case http.MethodHead:
		sum, ok := b.sums[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("X-Amz-Meta-Sha256", sum)
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.objects[key] = data
		b.sums[key] = r.Header.Get("X-Amz-Meta-Sha256")
		b.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store(t *testing.T) {
	bucket := &fakeBucket{
		objects: make(map[string][]byte),
		sums:    make(map[string]string),
		types:   make(map[string]string),
	}
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	store, err := NewS3Store(context.Background(), &config.Config{
		R2Endpoint:  srv.URL,
		R2Region:    "auto",
		R2Bucket:    "assets",
		R2AccessKey: "access",
		R2SecretKey: "secret",
	})
	require.NoError(t, err)

	ctx := context.Background()

	_, found, err := store.Checksum(ctx, "site/index.html")
	require.NoError(t, err)
	assert.False(t, found)

	body := []byte("<h1>home</h1>")
	err = store.Put(ctx, Object{
		Key:         "site/index.html",
		Size:        int64(len(body)),
		ContentType: "text/html; charset=utf-8",
		SHA256:      utils.Hash(body),
	}, bytes.NewReader(body))
	require.NoError(t, err)

	bucket.mu.Lock()
	assert.Equal(t, body, bucket.objects["site/index.html"])
	assert.Equal(t, "text/html; charset=utf-8", bucket.types["site/index.html"])
	assert.Contains(t, bucket.lastAuth, "Credential=access/")
	bucket.mu.Unlock()

	sum, found, err := store.Checksum(ctx, "site/index.html")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, utils.Hash(body), sum)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), &config.Config{R2Region: "auto"})
	assert.Error(t, err)
}
