package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/engramkit/engram/pkg/config"
)

// WriteConfigFile marshals cfg to YAML inside dir and returns the path.
func WriteConfigFile(t *testing.T, dir string, cfg *config.Config) string {
	t.Helper()

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// WriteScriptFile writes a Lua script into dir, creating the directory
// when needed, and returns the script path.
func WriteScriptFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
