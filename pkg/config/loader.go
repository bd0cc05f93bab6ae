package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/colpack/pkg/errors"
)

// Load reads a YAML file into config, expanding ${VAR} references from the
// environment before parsing. Unset variables expand to the empty string.
func Load(path string, config interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "reading config file")
	}

	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "parsing config file")
	}
	return nil
}

// Save writes config to a YAML file, creating or truncating it
func Save(path string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "encoding config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "writing config file")
	}
	return nil
}
