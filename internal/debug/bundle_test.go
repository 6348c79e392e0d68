package debug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBundleWritesPrivateJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "bundle.json")
	bundle := NewBundle()
	bundle.Version = map[string]any{"version": "1.2.3"}
	bundle.Database = map[string]any{"movies": 3}
	bundle.Checks = []Check{{Name: "database", OK: true, Message: "schema v2"}}

	require.NoError(t, WriteBundle(path, bundle))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Bundle
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, bundle.GOOS, decoded.GOOS)
	require.Equal(t, bundle.GoVersion, decoded.GoVersion)
	require.Equal(t, "1.2.3", decoded.Version["version"])
	require.EqualValues(t, 3, decoded.Database["movies"])
	require.True(t, decoded.Healthy())
}

func TestWriteBundleRequiresOutputPath(t *testing.T) {
	t.Parallel()

	err := WriteBundle("", NewBundle())
	require.Error(t, err)
	require.Contains(t, err.Error(), "output path is required")
}

func TestHealthyFailsOnAnyFailedCheck(t *testing.T) {
	t.Parallel()

	bundle := NewBundle()
	require.True(t, bundle.Healthy())

	bundle.Checks = []Check{
		{Name: "config", OK: true},
		{Name: "session", OK: false, Message: "mode 0644"},
	}
	require.False(t, bundle.Healthy())
}
