package static

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// ContentType infers a Content-Type from the file extension. Textual types
// carry charset=utf-8; unknown extensions are application/octet-stream.
func ContentType(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return fiber.MIMEOctetStream
	}

	mime := utils.GetMIME(ext)
	if mime == "" {
		return fiber.MIMEOctetStream
	}
	if strings.Contains(mime, "charset=") {
		return mime
	}

	switch {
	case strings.HasPrefix(mime, "text/"),
		mime == fiber.MIMEApplicationJavaScript,
		mime == fiber.MIMEApplicationJSON,
		mime == "application/manifest+json",
		mime == "image/svg+xml":
		return mime + "; charset=utf-8"
	}
	return mime
}
