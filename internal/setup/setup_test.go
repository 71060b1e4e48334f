package setup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestConfigure_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"theme": "dark",
		"mcpServers": {"other": {"command": "/bin/other"}}
	}`), 0644))

	binary := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	path, err := Configure(Options{ConfigPath: configPath, BinaryPath: binary, DataDir: filepath.Join(dir, "data")})
	require.NoError(t, err)
	assert.Equal(t, configPath, path)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/bin/other", cfg.MCPServers["other"].Command)
	assert.Equal(t, binary, cfg.MCPServers[ServerKey].Command)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.MCPServers[ServerKey].Env[DataDirEnv])

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.NotEmpty(t, status.Issues)

	_, err = Configure(Options{ConfigPath: configPath, BinaryPath: filepath.Join(dir, "missing-binary")})
	require.NoError(t, err)

	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	var out bytes.Buffer
	cli := NewCLI(&out)

	require.NoError(t, cli.Run([]string{"desktop", "--config", configPath, "--binary", "/opt/gfr/mcp-server-lite"}))
	assert.Contains(t, out.String(), "Registered "+ServerKey)

	out.Reset()
	require.NoError(t, cli.Run([]string{"status", "--config", configPath}))
	assert.Contains(t, out.String(), "Registered:    true")

	assert.Error(t, cli.Run([]string{"bogus"}))
}
