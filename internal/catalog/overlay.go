package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type overlayFile struct {
	Models []Descriptor `json:"models" yaml:"models" toml:"models"`
}

// LoadOverlay reads extra descriptors from a file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadOverlay(path string) ([]Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f overlayFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".json":
		err = json.Unmarshal(b, &f)
	case ".toml":
		err = toml.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("unsupported overlay extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse overlay %s: %w", path, err)
	}
	return f.Models, nil
}
