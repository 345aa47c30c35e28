package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader reads the providers.yaml configuration: one entry per provider
 * identity key with its credential/config bag. Loaded once at worker start;
 * the resulting Config is handed to every registry unchanged.
 */

// File represents the structure of providers.yaml
type File struct {
	Providers []Entry `yaml:"providers"`
}

// Entry represents a single provider in the YAML file
type Entry struct {
	Key    string            `yaml:"key"`
	Config map[string]string `yaml:"config"`
}

// Validate checks a single provider entry
func (e *Entry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("provider key cannot be empty")
	}
	return nil
}

// Load reads and parses a providers.yaml file into a Config
func Load(filePath string) (Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading providers file: %w", err)
	}
	return Parse(data)
}

// Parse parses providers.yaml content into a Config
func Parse(data []byte) (Config, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing providers YAML: %w", err)
	}

	configs := make(Config, len(file.Providers))
	for _, entry := range file.Providers {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("validating provider entry: %w", err)
		}
		if _, exists := configs[entry.Key]; exists {
			return nil, fmt.Errorf("duplicate provider key: %s", entry.Key)
		}
		cfg := entry.Config
		if cfg == nil {
			cfg = map[string]string{}
		}
		configs[entry.Key] = cfg
	}

	return configs, nil
}
