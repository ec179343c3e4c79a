package config

// Overrides holds the top-level keys a project file may set. A nil field means
// the key was absent and the default survives.
type Overrides struct {
	Src    *string        `yaml:"src"`
	Dist   *string        `yaml:"dist"`
	Temp   *string        `yaml:"temp"`
	Public *string        `yaml:"public"`
	Paths  *Paths         `yaml:"paths"`
	Data   map[string]any `yaml:"data"`
	Server *ServerConfig  `yaml:"server"`
}

// Merge applies o over base one level deep and returns a new config. A key
// present in o replaces the whole default value, so overriding one glob under
// paths leaves the other categories empty.
func Merge(base *BuildConfig, o *Overrides) *BuildConfig {
	out := base.Clone()
	if o == nil {
		return out
	}
	if o.Src != nil {
		out.Src = *o.Src
	}
	if o.Dist != nil {
		out.Dist = *o.Dist
	}
	if o.Temp != nil {
		out.Temp = *o.Temp
	}
	if o.Public != nil {
		out.Public = *o.Public
	}
	if o.Paths != nil {
		out.Paths = *o.Paths
	}
	if o.Data != nil {
		out.Data = o.Data
	}
	if o.Server != nil {
		out.Server = *o.Server
	}
	return out
}
