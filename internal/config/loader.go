package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"localassist/internal/catalog"
	"localassist/internal/resource"
	"localassist/internal/settings"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir       string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DataDir         string   `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	CatalogOverlay  string   `json:"catalog_overlay" yaml:"catalog_overlay" toml:"catalog_overlay"`
	DownloadBaseURL string   `json:"download_base_url" yaml:"download_base_url" toml:"download_base_url"`
	Runtime         string   `json:"runtime" yaml:"runtime" toml:"runtime"`
	RemoteModel     string   `json:"remote_model" yaml:"remote_model" toml:"remote_model"`
	SampleMS        int      `json:"sample_interval_ms" yaml:"sample_interval_ms" toml:"sample_interval_ms"`
	BatchSize       int      `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	FragmentEvery   int      `json:"fragment_every" yaml:"fragment_every" toml:"fragment_every"`
	LlamaCtx        int      `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads    int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	// Settings seeds the settings store; see Seed.Apply.
	Settings Seed `json:"settings" yaml:"settings" toml:"settings"`
}

// Seed holds settings values written into the store at startup and on
// config file changes. Empty fields leave the stored value alone.
type Seed struct {
	Guardrail     string            `json:"guardrail" yaml:"guardrail" toml:"guardrail"`
	CustomPercent int               `json:"custom_percent" yaml:"custom_percent" toml:"custom_percent"`
	RemoteURL     string            `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	RemoteAPIKey  string            `json:"remote_api_key" yaml:"remote_api_key" toml:"remote_api_key"`
	Temperature   float32           `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens     int               `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Models        map[string]string `json:"models" yaml:"models" toml:"models"`
}

// Apply copies the non-empty seed values onto s.
func (sd Seed) Apply(s *settings.Settings) error {
	if sd.Guardrail != "" {
		lvl, err := resource.ParseLevel(sd.Guardrail)
		if err != nil {
			return err
		}
		s.Guardrail = lvl
	}
	if sd.CustomPercent != 0 {
		s.CustomPercent = sd.CustomPercent
	}
	if sd.RemoteURL != "" {
		s.RemoteURL = sd.RemoteURL
	}
	if sd.RemoteAPIKey != "" {
		s.RemoteAPIKey = sd.RemoteAPIKey
	}
	if sd.Temperature != 0 {
		s.Temperature = sd.Temperature
	}
	if sd.MaxTokens != 0 {
		s.MaxTokens = sd.MaxTokens
	}
	for k, v := range sd.Models {
		cat, ok := catalog.ParseCategory(k)
		if !ok {
			return fmt.Errorf("unknown model category %q", k)
		}
		if s.Models == nil {
			s.Models = map[catalog.Category]string{}
		}
		s.Models[cat] = v
	}
	return nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
