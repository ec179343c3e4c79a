package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/licht-dev/licht-compile/internal/logfields"
)

// FileBaseName is the project config file name without extension.
const FileBaseName = "licht-compile.config"

// Candidates lists the project config file names probed in order.
var Candidates = []string{
	FileBaseName + ".yaml",
	FileBaseName + ".yml",
	FileBaseName + ".json",
	FileBaseName + ".lua",
}

// Resolve builds the configuration for a project rooted at dir. explicitPath,
// when non-empty, replaces the candidate lookup. Any failure to find or load the
// file falls back to the defaults without surfacing an error.
func Resolve(dir, explicitPath string) *BuildConfig {
	loadEnvFiles(dir)

	path := explicitPath
	if path == "" {
		path = Find(dir)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if path == "" {
		slog.Debug("No project config found; using defaults", logfields.Path(dir))
		return Default()
	}

	o, err := Load(path)
	if err != nil {
		slog.Debug("Project config could not be loaded; using defaults", logfields.Path(path), logfields.Error(err))
		return Default()
	}

	cfg := Merge(Default(), o)
	for _, w := range cfg.Warnings() {
		slog.Warn(w, logfields.Path(path))
	}
	slog.Debug("Loaded project config", logfields.Path(path))
	return cfg
}

// Find returns the first candidate config file present in dir, or "".
func Find(dir string) string {
	for _, name := range Candidates {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads a project file and returns the keys it sets.
func Load(path string) (*Overrides, error) {
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return loadLua(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode([]byte(os.ExpandEnv(string(data))))
}

func decode(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &o, nil
}

// loadEnvFiles loads .env and .env.local from dir without overriding variables
// already present in the process environment.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Debug("Failed to load env file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
	}
}
