// Package config resolves the build configuration: a hardcoded default set of
// directories and globs, optionally overridden by a project file in the working
// directory.
package config

import "maps"

// DefaultPort is the dev server port used when the project does not set one.
const DefaultPort = 2080

// BuildConfig is the resolved configuration shared read-only by every task.
type BuildConfig struct {
	Src    string         `yaml:"src"`
	Dist   string         `yaml:"dist"`
	Temp   string         `yaml:"temp"`
	Public string         `yaml:"public"`
	Paths  Paths          `yaml:"paths"`
	Data   map[string]any `yaml:"data,omitempty"`
	Server ServerConfig   `yaml:"server"`
}

// Paths maps each asset category to a glob relative to Src.
type Paths struct {
	Styles  string `yaml:"styles"`
	Scripts string `yaml:"scripts"`
	Pages   string `yaml:"pages"`
	Images  string `yaml:"images"`
	Fonts   string `yaml:"fonts"`
}

// ServerConfig configures the development server started by the serve task.
type ServerConfig struct {
	Port int `yaml:"port"`
	// Routes maps a URL prefix to a directory served verbatim, ahead of the fallback roots.
	Routes map[string]string `yaml:"routes,omitempty"`
}

// Default returns a fresh copy of the built-in configuration.
func Default() *BuildConfig {
	return &BuildConfig{
		Src:    "src",
		Dist:   "dist",
		Temp:   "temp",
		Public: "public",
		Paths: Paths{
			Styles:  "assets/styles/*.scss",
			Scripts: "assets/scripts/*.js",
			Pages:   "*.html",
			Images:  "assets/images/**",
			Fonts:   "assets/fonts/**",
		},
		Server: ServerConfig{
			Port:   DefaultPort,
			Routes: map[string]string{"/node_modules": "node_modules"},
		},
	}
}

// Clone returns a copy that shares no maps with c.
func (c *BuildConfig) Clone() *BuildConfig {
	out := *c
	if c.Data != nil {
		out.Data = maps.Clone(c.Data)
	}
	if c.Server.Routes != nil {
		out.Server.Routes = maps.Clone(c.Server.Routes)
	}
	return &out
}
