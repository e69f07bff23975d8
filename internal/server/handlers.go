package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bilgisen/staticd/internal/static"
	"github.com/gofiber/fiber/v2"
)

// FileSource opens files by URL path. *static.Root implements it.
type FileSource interface {
	Open(urlPath string) (*os.File, fs.FileInfo, error)
}

// Handlers serves files out of a static root
type Handlers struct {
	root         FileSource
	cacheControl string
}

// NewHandlers creates the file handlers for root. maxAge is advertised in
// Cache-Control on every successful response.
func NewHandlers(root FileSource, maxAge time.Duration) *Handlers {
	return &Handlers{
		root:         root,
		cacheControl: fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())),
	}
}

// ServeFile handles GET and HEAD for any path under the root
func (h *Handlers) ServeFile(c *fiber.Ctx) error {
	// The raw path keeps ".." segments intact so an escape is rejected
	// instead of being clamped to the root.
	raw := string(c.Request().URI().PathOriginal())
	urlPath, err := url.PathUnescape(raw)
	if err != nil {
		return fiber.ErrNotFound
	}

	f, info, err := h.root.Open(urlPath)
	if err != nil {
		if errors.Is(err, static.ErrNotFound) || errors.Is(err, static.ErrOutsideRoot) {
			return fiber.ErrNotFound
		}
		return fmt.Errorf("failed to open %q: %w", urlPath, err)
	}

	etag := fileETag(info.Size(), info.ModTime())
	c.Set(fiber.HeaderContentType, static.ContentType(info.Name()))
	c.Set(fiber.HeaderLastModified, info.ModTime().UTC().Format(http.TimeFormat))
	c.Set(fiber.HeaderCacheControl, h.cacheControl)
	c.Set(fiber.HeaderETag, etag)
	c.Set(fiber.HeaderAcceptRanges, "none")

	if fresh(c, etag, info.ModTime()) {
		f.Close()
		c.Status(fiber.StatusNotModified)
		return nil
	}

	// The stream is closed by fasthttp once written, HEAD included.
	return c.Status(fiber.StatusOK).SendStream(f, streamSize(info.Size()))
}

// streamSize converts a file size for SendStream. Sizes that do not fit in
// an int are sent chunked (-1).
func streamSize(size int64) int {
	if size < 0 || uint64(size) > uint64(math.MaxInt) {
		return -1
	}
	return int(size)
}

func fileETag(size int64, modTime time.Time) string {
	return fmt.Sprintf(`W/"%x-%x"`, size, modTime.UnixMilli())
}

// fresh reports whether the client's cached copy is still current.
// If-None-Match takes precedence over If-Modified-Since.
func fresh(c *fiber.Ctx, etag string, modTime time.Time) bool {
	if noneMatch := c.Get(fiber.HeaderIfNoneMatch); noneMatch != "" {
		for _, tag := range strings.Split(noneMatch, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "*" || strings.TrimPrefix(tag, "W/") == strings.TrimPrefix(etag, "W/") {
				return true
			}
		}
		return false
	}

	if since := c.Get(fiber.HeaderIfModifiedSince); since != "" {
		t, err := http.ParseTime(since)
		if err != nil {
			return false
		}
		return !modTime.Truncate(time.Second).After(t)
	}

	return false
}
