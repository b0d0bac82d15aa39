package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"larder/pkg/platform/sentinel"
)

// Dir persists each named record as one JSON file under a root directory.
// Values are written whole and read whole, matching the localStorage-style
// contract the rest of the system assumes.
type Dir struct {
	root string
}

// NewDir creates the root directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(name string) string {
	// Record names are fixed constants, but keep path traversal out anyway.
	return filepath.Join(d.root, filepath.Base(name)+".json")
}

func (d *Dir) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if os.IsNotExist(err) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	// Corrupt content is treated as absent at this boundary so a bad record
	// degrades to empty state instead of wedging every caller.
	if !json.Valid(data) {
		return nil, sentinel.ErrNotFound
	}
	return data, nil
}

func (d *Dir) Write(name string, value []byte) error {
	tmp := d.path(name) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, d.path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Remove(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Keys() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list local store: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	return keys, nil
}
