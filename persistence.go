package forgetap

import (
	"os"

	"github.com/goccy/go-json"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Persistence = (*client)(nil)

// Persistence writes the captured view to disk.
type Persistence interface {
	// SaveMetadata writes building metadata to path.
	SaveMetadata(path string) error

	// ExportMap writes the city map export to path as JSON.
	ExportMap(path string) error
}

func (c *client) SaveMetadata(path string) error {
	return c.store.SaveMetadata(path)
}

func (c *client) ExportMap(path string) error {
	data, err := json.MarshalIndent(c.store.Export(), "", "  ")
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	c.logger.Info().Str("path", path).Msg("City map exported")
	return nil
}
