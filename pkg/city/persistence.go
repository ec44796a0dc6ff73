package city

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/errors"
)

// SaveMetadata writes the building metadata to path as JSON. The file is
// written to a temporary sibling and renamed into place.
func (s *Store) SaveMetadata(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.metadata, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errors.WrapParse("json", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// LoadMetadata merges definitions stored by SaveMetadata into the store.
// A missing file is not an error.
func (s *Store) LoadMetadata(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIO("read", path, err)
	}

	var defs map[string]any
	if err := json.Unmarshal(data, &defs); err != nil {
		return errors.WrapParse("json", path, err)
	}

	s.mu.Lock()
	for k, v := range defs {
		s.metadata[k] = v
	}
	s.mu.Unlock()

	s.logger.Info().Str("path", path).Int("definitions", len(defs)).Msg("Building metadata loaded")
	return nil
}
