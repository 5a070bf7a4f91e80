package renderer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigProfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	saved := DefaultRendererConfig()
	saved.SsaoRadius = 0.7
	saved.Exposure = 1.8
	require.NoError(t, SaveConfigProfile(path, saved))

	loaded, err := LoadConfigProfile(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadConfigProfile_Errors(t *testing.T) {
	_, err := LoadConfigProfile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = LoadConfigProfile(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse config"))
}

func TestDefaultRendererConfig(t *testing.T) {
	c := DefaultRendererConfig()
	if c.Gamma != 2.2 {
		t.Errorf("Gamma = %v, want 2.2", c.Gamma)
	}
	if c.Exposure != 1.0 {
		t.Errorf("Exposure = %v, want 1.0", c.Exposure)
	}
	if c.SsaoRadius <= 0 {
		t.Errorf("SsaoRadius = %v, want > 0", c.SsaoRadius)
	}
}

func TestMipLevelCount(t *testing.T) {
	cases := []struct {
		w, h uint32
		want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{512, 512, 10},
		{1024, 512, 11},
		{1920, 1080, 11},
	}
	for _, tc := range cases {
		if got := MipLevelCount(tc.w, tc.h); got != tc.want {
			t.Errorf("MipLevelCount(%d, %d) = %d, want %d", tc.w, tc.h, got, tc.want)
		}
	}
}
