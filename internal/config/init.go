package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

// Init writes the default configuration to configPath as YAML.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("file", configPath).
			Build()
	}

	example := Default()
	example.Data = map[string]any{
		"title": "My Site",
		"menus": []map[string]string{{"name": "Home", "link": "index.html"}},
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("file", configPath).
			Build()
	}
	return nil
}
