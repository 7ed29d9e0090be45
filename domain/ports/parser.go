package ports

import "github.com/reglet-dev/oneshot/domain/entities"

// ConfigParser turns a configuration document into a fetch Config.
type ConfigParser interface {
	// Parse overlays the document onto the defaults.
	Parse(data []byte) (*entities.Config, error)

	// Load reads and parses the file at path and loads the trust anchor it
	// names.
	Load(path string) (*entities.Config, error)
}
