// manifest/load.go
package manifest

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Load reads and validates a TOML manifest. A missing file is an error;
// run with defaults by loading an empty document instead.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes a TOML document and applies Validate's defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
