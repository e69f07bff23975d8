package bundle

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfgs := Defaults()
	require.Len(t, cfgs, 3)

	for _, c := range cfgs {
		assert.NoError(t, c.Validate(), c.Name)
	}

	assert.Equal(t, "client", cfgs[0].Name)
	assert.Equal(t, "output/static", cfgs[0].OutputDir())
	assert.Equal(t, "client-bundle.js", cfgs[0].Output.Filename)
	assert.Equal(t, "app-bundle.js", cfgs[1].Output.Filename)
	assert.Empty(t, cfgs[2].Entries)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing name", func(c *Config) { c.Name = "" }},
		{"missing output path", func(c *Config) { c.Output.Path = "" }},
		{"filename with directory", func(c *Config) { c.Output.Filename = "js/client.js" }},
		{"empty entry", func(c *Config) { c.Entries = []string{""} }},
		{"copy without source", func(c *Config) { c.Copy[0].From = "" }},
		{"bad ignore glob", func(c *Config) { c.Copy[0].Ignore = []string{"[*.js"} }},
		{"bad test regexp", func(c *Config) { c.Transforms[0].Test = `(\.jsx?$` }},
		{"bad exclude regexp", func(c *Config) { c.Transforms[0].Exclude = `node_modules(` }},
		{"transform without loaders", func(c *Config) { c.Transforms[1].Loaders = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Client()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestIgnores(t *testing.T) {
	client := Client()
	assert.True(t, client.Ignores("source/client.jsx"))
	assert.True(t, client.Ignores("util.js"))
	assert.True(t, client.Ignores(".gitignore"))
	assert.False(t, client.Ignores("index.html"))
	assert.False(t, client.Ignores("styles.css"))

	assert.False(t, App().Ignores(".gitignore"))
	assert.False(t, ServerPassthrough().Ignores("server.js"))
}

func TestExpected(t *testing.T) {
	assert.Equal(t, []string{"output/static/client-bundle.js"}, Client().Expected())
	assert.Equal(t, []string{"output/app-bundle.js"}, App().Expected())
	assert.Equal(t, []string{"output/server-bundle.js"}, ServerPassthrough().Expected())
}

func TestVerify(t *testing.T) {
	t.Run("complete build", func(t *testing.T) {
		fsys := fstest.MapFS{
			"output/static/client-bundle.js": {Data: []byte("c")},
			"output/static/index.html":       {Data: []byte("<html>")},
			"output/app-bundle.js":           {Data: []byte("a")},
			"output/server-bundle.js":        {Data: []byte("s")},
		}

		report, err := Verify(fsys, Defaults()...)
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Empty(t, report.Missing)
		assert.Empty(t, report.Unexpected)
	})

	t.Run("missing bundle and leaked sources", func(t *testing.T) {
		fsys := fstest.MapFS{
			"output/static/index.html":     {Data: []byte("<html>")},
			"output/static/client.jsx":     {Data: []byte("src")},
			"output/static/.gitignore":     {Data: []byte("*")},
			"output/app-bundle.js":         {Data: []byte("a")},
			"output/server-bundle.js":      {Data: []byte("s")},
			"output/node_modules/dep/x.js": {Data: []byte("dep")},
		}

		report, err := Verify(fsys, Defaults()...)
		require.NoError(t, err)
		assert.False(t, report.OK())
		assert.Equal(t, []string{"output/static/client-bundle.js"}, report.Missing)
		assert.Equal(t, []string{"output/static/.gitignore", "output/static/client.jsx"}, report.Unexpected)
	})

	t.Run("no output at all", func(t *testing.T) {
		report, err := Verify(fstest.MapFS{}, Defaults()...)
		require.NoError(t, err)
		assert.Len(t, report.Missing, 3)
		assert.Empty(t, report.Unexpected)
	})

	t.Run("rebased onto the static root", func(t *testing.T) {
		fsys := fstest.MapFS{
			"client-bundle.js": {Data: []byte("c")},
			"index.html":       {Data: []byte("<html>")},
			"vendor.js":        {Data: []byte("v")},
		}

		report, err := Verify(fsys, Client().Rebase("."))
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Equal(t, []string{"vendor.js"}, report.Unexpected)
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := Client()
		bad.Name = ""
		_, err := Verify(fstest.MapFS{}, bad)
		assert.Error(t, err)
	})
}
