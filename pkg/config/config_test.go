/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for configuration loading and the dotenv settings file
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "mvt-android", cfg.MVT.Binary)
	assert.Equal(t, "adb", cfg.MVT.ADBBinary)
	assert.Equal(t, "/tmp/fvm", cfg.MVT.OutputFolder)
	assert.Equal(t, 10*time.Minute, cfg.MVT.Timeout)
	assert.Equal(t, 200, cfg.History.Capacity)
	assert.Equal(t, 2, cfg.Log.MaxSize)
	assert.Equal(t, 1, cfg.Log.MaxFiles)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, ".env", cfg.EnvFile)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fvm.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  addr: \":8080\"\nmvt:\n  timeout: 30s\n"), 0644))

	t.Setenv("FVM_MVT_BINARY", "/opt/mvt/bin/mvt-android")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.MVT.Timeout)
	assert.Equal(t, "/opt/mvt/bin/mvt-android", cfg.MVT.Binary)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	cfg.MVT.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg.MVT.Timeout = time.Minute
	cfg.Metrics.Path = "metrics"
	assert.Error(t, cfg.Validate())
}

func TestEnvFileSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# secrets\nOTHER=1\nMVT_VT_API_KEY=old\n"), 0600))

	env := NewEnvFile(path)
	require.NoError(t, env.Set(VirusTotalKey, "new-key"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# secrets\nOTHER=1\nMVT_VT_API_KEY=new-key\n", string(data))

	value, err := env.Get(VirusTotalKey)
	require.NoError(t, err)
	assert.Equal(t, "new-key", value)
}

func TestEnvFileAppendsAndCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	env := NewEnvFile(path)

	value, err := env.Get(VirusTotalKey)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, env.Set(VirusTotalKey, "abc"))
	require.NoError(t, env.Set("OTHER", "2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MVT_VT_API_KEY=abc\nOTHER=2\n", string(data))
}

func TestEnvFileRejectsEmpty(t *testing.T) {
	env := NewEnvFile(filepath.Join(t.TempDir(), ".env"))

	err := env.Set("", "value")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MissingParameter, appErr.Code)

	err = env.Set(VirusTotalKey, "  ")
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MissingValue, appErr.Code)

	err = env.Set(VirusTotalKey, "a\nb")
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.EncodingError, appErr.Code)
}

func TestEnvFileMissingDirectory(t *testing.T) {
	env := NewEnvFile(filepath.Join(t.TempDir(), "nope", ".env"))
	err := env.Set(VirusTotalKey, "abc")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ConfigFileNotFound, appErr.Code)
}
