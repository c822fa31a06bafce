package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dir: /opt/platform-tools
adb: /usr/local/bin/adb
source: /mnt/tools
debug: true
`), 0644))

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, config{
		Dir:    "/opt/platform-tools",
		ADB:    "/usr/local/bin/adb",
		Source: "/mnt/tools",
		Debug:  boolPtr(true),
	}, cfg)
	assert.True(t, cfg.debug())
}

func TestLoadConfigMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := loadConfig(path, false)
	assert.NoError(t, err)
	assert.Equal(t, config{}, cfg)

	_, err = loadConfig(path, true)
	assert.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dir: [\n"), 0644))

	_, err := loadConfig(path, false)
	assert.Error(t, err)
}

func TestConfigMerge(t *testing.T) {
	flags := config{Dir: "/flag/dir"}
	file := config{Dir: "/file/dir", Fastboot: "/file/fastboot", Debug: boolPtr(true)}

	assert.Equal(t, config{
		Dir:      "/flag/dir",
		Fastboot: "/file/fastboot",
		Debug:    boolPtr(true),
	}, flags.merge(file))
}

func TestConfigMergeNoDebugFlagWins(t *testing.T) {
	flags := config{Debug: boolPtr(false)}
	file := config{Debug: boolPtr(true)}

	assert.False(t, flags.merge(file).debug())
	assert.True(t, config{}.merge(file).debug())
	assert.False(t, config{}.merge(config{}).debug())
}

func boolPtr(b bool) *bool {
	return &b
}

func TestResolveToolsPrefersConfig(t *testing.T) {
	tools, err := resolveTools(config{ADB: "/a/adb", Fastboot: "/a/fastboot", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "/a/adb", tools.ADB)
	assert.Equal(t, "/a/fastboot", tools.Fastboot)
}

func TestResolveToolsNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := resolveTools(config{Dir: t.TempDir()})
	assert.Error(t, err)
}
