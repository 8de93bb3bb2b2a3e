// ABOUTME: Directory-backed playbook source resolving ids to YAML files.
// ABOUTME: Used by the CLI and by engines that load definitions straight from disk.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/2389-research/playbook/playbook"
)

// FileSource loads playbook definitions from a directory, resolving an id to
// <dir>/<id>.yaml (or .yml). The file's declared id must match the requested id.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// GetPlaybook loads and decodes the definition for id.
func (s *FileSource) GetPlaybook(ctx context.Context, id string) (*playbook.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	def, err := playbook.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if def.ID != id {
		return nil, fmt.Errorf("playbook file %s declares id %q, expected %q", path, def.ID, id)
	}
	return def, nil
}

func (s *FileSource) resolve(id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(s.dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("playbook %q not found in %s", id, s.dir)
}
