// Package bundle describes the builds that produce the static root.
//
// The configurations here are handed to an external bundler; nothing in this
// repository compiles or copies sources. They are kept as data so the expected
// output layout can be validated and checked (see Verify).
package bundle

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Output is where a build writes its bundle.
type Output struct {
	Path       string `json:"path" validate:"required"`
	PublicPath string `json:"public_path,omitempty"`
	Filename   string `json:"filename" validate:"required,excludesall=/"`
}

// CopyRule mirrors From into the output directory at To. Files whose base name
// matches an Ignore glob are left for the transform step.
type CopyRule struct {
	From   string   `json:"from" validate:"required"`
	To     string   `json:"to"`
	Ignore []string `json:"ignore,omitempty" validate:"dive,required"`
}

// TransformRule runs Loaders over sources matching Test, skipping Exclude.
type TransformRule struct {
	Test    string   `json:"test" validate:"required"`
	Loaders []string `json:"loaders" validate:"min=1,dive,required"`
	Exclude string   `json:"exclude,omitempty"`
}

// Config is one build description.
type Config struct {
	Name       string          `json:"name" validate:"required"`
	Entries    []string        `json:"entries" validate:"dive,required"`
	Output     Output          `json:"output"`
	Copy       []CopyRule      `json:"copy,omitempty" validate:"dive"`
	Transforms []TransformRule `json:"transforms,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// sourceTransforms is shared by the client and app builds.
func sourceTransforms() []TransformRule {
	return []TransformRule{
		{Test: `\.jsx?$`, Loaders: []string{"react-hot", "babel"}, Exclude: `node_modules`},
		{Test: `\.js?$`, Loaders: []string{"react-hot", "babel"}, Exclude: `node_modules`},
	}
}

// Client is the browser bundle. Its output directory is the server's static root.
func Client() Config {
	return Config{
		Name:    "client",
		Entries: []string{"./source/client.jsx"},
		Output: Output{
			Path:       "output/static",
			PublicPath: "/",
			Filename:   "client-bundle.js",
		},
		Copy: []CopyRule{
			{From: "source", To: "", Ignore: []string{"*.js", "*.jsx", ".gitignore"}},
		},
		Transforms: sourceTransforms(),
	}
}

// App is the top-level application bundle.
func App() Config {
	return Config{
		Name:    "app",
		Entries: []string{"./source/app.js"},
		Output: Output{
			Path:       "output",
			PublicPath: "/",
			Filename:   "app-bundle.js",
		},
		Copy: []CopyRule{
			{From: "source", To: "", Ignore: []string{"*.js", "*.jsx"}},
		},
		Transforms: sourceTransforms(),
	}
}

// ServerPassthrough copies the server source verbatim instead of bundling it.
// Its entry list is empty, so the bundle filename is never a usable artifact.
func ServerPassthrough() Config {
	return Config{
		Name: "server",
		Output: Output{
			Path:     "output",
			Filename: "server-bundle-unusable.js",
		},
		Copy: []CopyRule{
			{From: "source/server.js", To: "server-bundle.js"},
		},
	}
}

// Defaults returns the client, app and server configurations, in that order.
func Defaults() []Config {
	return []Config{Client(), App(), ServerPassthrough()}
}

// Validate checks required fields, regular expressions and glob patterns.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("bundle %q: %w", c.Name, err)
	}

	var errs []error
	for i, t := range c.Transforms {
		if _, err := regexp.Compile(t.Test); err != nil {
			errs = append(errs, fmt.Errorf("transforms[%d].test: %w", i, err))
		}
		if t.Exclude != "" {
			if _, err := regexp.Compile(t.Exclude); err != nil {
				errs = append(errs, fmt.Errorf("transforms[%d].exclude: %w", i, err))
			}
		}
	}
	for i, r := range c.Copy {
		for _, pattern := range r.Ignore {
			if _, err := path.Match(pattern, ""); err != nil {
				errs = append(errs, fmt.Errorf("copy[%d].ignore %q: %w", i, pattern, err))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("bundle %q: %w", c.Name, err)
	}
	return nil
}

// OutputDir returns the cleaned, slash-separated output directory.
func (c Config) OutputDir() string {
	return path.Clean(strings.TrimPrefix(c.Output.Path, "./"))
}

// Ignores reports whether any copy rule excludes a file with this base name.
func (c Config) Ignores(name string) bool {
	base := path.Base(name)
	for _, r := range c.Copy {
		for _, pattern := range r.Ignore {
			if ok, _ := path.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

// Expected lists the files this build must leave behind, relative to the
// project base and slash-separated.
func (c Config) Expected() []string {
	dir := c.OutputDir()

	var files []string
	if len(c.Entries) > 0 {
		files = append(files, path.Join(dir, c.Output.Filename))
	}
	for _, r := range c.Copy {
		// A single-file rule names its target; directory mirrors have no fixed list.
		if r.To != "" && path.Ext(r.To) != "" {
			files = append(files, path.Join(dir, r.To))
		}
	}
	return files
}
