package config

import (
	"fmt"
	"path/filepath"
)

// Warnings reports output directories that overlap. Overlaps are not rejected;
// clean and build would simply clobber each other's content.
func (c *BuildConfig) Warnings() []string {
	dirs := []struct{ key, path string }{
		{"dist", c.Dist},
		{"temp", c.Temp},
		{"public", c.Public},
	}
	var out []string
	for i := range dirs {
		for j := i + 1; j < len(dirs); j++ {
			if filepath.Clean(dirs[i].path) == filepath.Clean(dirs[j].path) {
				out = append(out, fmt.Sprintf("config keys %q and %q point at the same directory %q", dirs[i].key, dirs[j].key, dirs[i].path))
			}
		}
	}
	return out
}
