package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {DB: "data/gps_data.db", Output: "table"},
			"u19":     {DB: "/srv/u19/gps_data.db", Output: "json"},
		},
	}

	tests := []struct {
		name     string
		override string
		wantDB   string
		wantErr  string
	}{
		{name: "uses current profile", wantDB: "data/gps_data.db"},
		{name: "override", override: "u19", wantDB: "/srv/u19/gps_data.db"},
		{name: "unknown override", override: "nonexistent", wantErr: `profile "nonexistent" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDB, p.DB)
		})
	}

	empty := newUserConfig()
	p, err := empty.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestLoadSaveUserConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles:       map[string]Profile{"test": {DB: "/tmp/test.db", RemoteDir: "club/gps"}},
	}
	require.NoError(t, SaveUserConfig(cfg))

	_, err := os.Stat(filepath.Join(dir, ".gpsr", "config.yaml"))
	require.NoError(t, err)

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	assert.Equal(t, "/tmp/test.db", loaded.Profiles["test"].DB)
	assert.Equal(t, "club/gps", loaded.Profiles["test"].RemoteDir)
}

func TestLoadUserConfig_NotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadUserConfig()
	require.Error(t, err)
}
