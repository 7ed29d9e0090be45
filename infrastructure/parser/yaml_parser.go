package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// YamlConfigParser implements ConfigParser for YAML.
type YamlConfigParser struct {
	readFile func(string) ([]byte, error)
}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{readFile: os.ReadFile}
}

// Parse unmarshals YAML bytes over the default configuration.
func (p *YamlConfigParser) Parse(data []byte) (*entities.Config, error) {
	cfg := entities.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errors.ConfigError{Err: err}
	}
	return &cfg, nil
}

// Load reads the file at path. A relative trust_anchor_file is resolved
// against the directory of path.
func (p *YamlConfigParser) Load(path string) (*entities.Config, error) {
	data, err := p.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := p.Parse(data)
	if err != nil {
		return nil, err
	}

	if err := p.loadTrustAnchor(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *YamlConfigParser) loadTrustAnchor(cfg *entities.Config, baseDir string) error {
	if cfg.TrustAnchorFile == "" {
		return nil
	}
	anchorPath := cfg.TrustAnchorFile
	if !filepath.IsAbs(anchorPath) {
		anchorPath = filepath.Join(baseDir, anchorPath)
	}
	anchor, err := p.readFile(anchorPath)
	if err != nil {
		return &errors.ConfigError{Field: "trust_anchor_file", Err: err}
	}
	cfg.TrustAnchor = anchor
	return nil
}
