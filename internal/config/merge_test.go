package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestMerge_NilOverridesKeepsDefaults(t *testing.T) {
	assert.Equal(t, Default(), Merge(Default(), nil))
	assert.Equal(t, Default(), Merge(Default(), &Overrides{}))
}

func TestMerge_PresentKeysReplaceAbsentKeysSurvive(t *testing.T) {
	cases := []struct {
		name  string
		o     Overrides
		check func(t *testing.T, got *BuildConfig)
	}{
		{
			name: "src only",
			o:    Overrides{Src: strPtr("site")},
			check: func(t *testing.T, got *BuildConfig) {
				want := Default()
				want.Src = "site"
				assert.Equal(t, want, got)
			},
		},
		{
			name: "all directories",
			o:    Overrides{Src: strPtr("a"), Dist: strPtr("b"), Temp: strPtr("c"), Public: strPtr("d")},
			check: func(t *testing.T, got *BuildConfig) {
				assert.Equal(t, []string{"a", "b", "c", "d"}, []string{got.Src, got.Dist, got.Temp, got.Public})
				assert.Equal(t, Default().Paths, got.Paths)
			},
		},
		{
			name: "empty string is still an override",
			o:    Overrides{Public: strPtr("")},
			check: func(t *testing.T, got *BuildConfig) {
				assert.Equal(t, "", got.Public)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Merge(Default(), &tc.o))
		})
	}
}

func TestMerge_PathsIsNotDeepMerged(t *testing.T) {
	got := Merge(Default(), &Overrides{Paths: &Paths{Styles: "css/*.scss"}})

	assert.Equal(t, "css/*.scss", got.Paths.Styles)
	assert.Empty(t, got.Paths.Scripts)
	assert.Empty(t, got.Paths.Pages)
	assert.Empty(t, got.Paths.Images)
	assert.Empty(t, got.Paths.Fonts)
}

func TestMerge_DoesNotAliasBase(t *testing.T) {
	base := Default()
	got := Merge(base, nil)
	got.Server.Routes["/extra"] = "extra"

	assert.NotContains(t, base.Server.Routes, "/extra")
}
