// Package scaffold writes the starter policy and config files of a project.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is the project-relative directory holding sentinex files.
const Dir = ".sentinex"

//go:embed templates/*.yaml
var templates embed.FS

// Result lists what Init did. Paths are relative to the project directory.
type Result struct {
	CreatedDir bool
	Written    []string
	Skipped    []string
}

// Template returns the embedded content of a template file.
func Template(name string) ([]byte, error) {
	return templates.ReadFile("templates/" + name)
}

// Init creates dir/.sentinex with policy.yaml and config.yaml. Existing
// files are left alone unless force is set.
func Init(dir string, force bool) (Result, error) {
	var res Result
	target := filepath.Join(dir, Dir)

	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		res.CreatedDir = true
	} else if err != nil {
		return res, fmt.Errorf("stat %s: %w", target, err)
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return res, fmt.Errorf("create %s: %w", target, err)
	}

	for _, name := range []string{"policy.yaml", "config.yaml"} {
		rel := filepath.Join(Dir, name)
		path := filepath.Join(dir, rel)

		if _, err := os.Stat(path); err == nil && !force {
			res.Skipped = append(res.Skipped, rel)
			continue
		}

		content, err := Template(name)
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			return res, fmt.Errorf("write %s: %w", rel, err)
		}
		res.Written = append(res.Written, rel)
	}
	return res, nil
}
