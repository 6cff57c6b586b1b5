package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the optional console.yaml file. Every field maps onto
// an environment variable; values from the file are applied only where the
// variable is not already set, so the environment always wins.
type FileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Backend struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"backend"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Tools struct {
		Path string `yaml:"path"`
	} `yaml:"tools"`
}

// LoadFile parses a console.yaml. A missing file is not an error; the file
// is optional and the defaults carry.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &fc, nil
}

// Apply pushes file values into the environment for keys not already set.
func (fc *FileConfig) Apply() {
	if fc == nil {
		return
	}

	setIfUnset := map[string]string{
		"PORT":              fc.Server.Port,
		"BACKEND_URL":       fc.Backend.URL,
		"LOG_LEVEL":         fc.Log.Level,
		"LOG_FORMAT":        fc.Log.Format,
		"TOOLS_CONFIG_PATH": fc.Tools.Path,
	}
	if fc.Backend.TimeoutSeconds > 0 {
		setIfUnset["BACKEND_TIMEOUT_SECONDS"] = fmt.Sprintf("%d", fc.Backend.TimeoutSeconds)
	}

	for key, value := range setIfUnset {
		if value == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to apply config file value")
		}
	}
}
