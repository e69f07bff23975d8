package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// Report is the result of checking an output tree against build configs.
type Report struct {
	// Missing are expected files that do not exist.
	Missing []string `json:"missing"`
	// Unexpected are files a copy rule should have excluded and no build produces.
	Unexpected []string `json:"unexpected"`
}

// OK reports whether every expected file exists.
func (r *Report) OK() bool {
	return len(r.Missing) == 0
}

// Verify checks fsys, rooted at the project base, against cfgs.
func Verify(fsys fs.FS, cfgs ...Config) (*Report, error) {
	expected := make(map[string]bool)
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		for _, f := range c.Expected() {
			expected[f] = true
		}
	}

	report := &Report{Missing: []string{}, Unexpected: []string{}}

	for f := range expected {
		info, err := fs.Stat(fsys, f)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.Missing = append(report.Missing, f)
		case err != nil:
			return nil, fmt.Errorf("failed to stat %s: %w", f, err)
		case !info.Mode().IsRegular():
			report.Missing = append(report.Missing, f)
		}
	}

	unexpected := make(map[string]bool)
	for _, c := range cfgs {
		dir := c.OutputDir()
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == dir && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if d.Name() == "node_modules" {
					return fs.SkipDir
				}
				return nil
			}
			if !expected[p] && c.Ignores(p) {
				unexpected[p] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}
	for f := range unexpected {
		report.Unexpected = append(report.Unexpected, f)
	}

	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	return report, nil
}

// Rebase returns a copy of c whose output directory is dir. The server uses it
// to check the client build against its static root directly.
func (c Config) Rebase(dir string) Config {
	c.Output.Path = path.Clean(dir)
	return c
}
