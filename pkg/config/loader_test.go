package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	require.NoError(t, Load(""))
	assert.Equal(t, "disk", viper.GetString("storage.type"))
	assert.Equal(t, "dzi", viper.GetString("export.format"))
	assert.Equal(t, "png", viper.GetString("dzi.image_format"))
	assert.Equal(t, 0, viper.GetInt("dzi.overlap"))
	assert.False(t, viper.GetBool("dzi.zip"))
	assert.Equal(t, time.Hour, viper.GetDuration("cache.ttl"))
	assert.Equal(t, ":8080", viper.GetString("server.addr"))
}

func TestLoad_ExplicitFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	content := []byte("storage:\n  type: s3\ns3:\n  bucket: pyramids\ndzi:\n  zip: true\n")
	require.NoError(t, os.WriteFile(cfg, content, 0644))

	require.NoError(t, Load(cfg))
	assert.Equal(t, "s3", viper.GetString("storage.type"))
	assert.Equal(t, "pyramids", viper.GetString("s3.bucket"))
	assert.True(t, viper.GetBool("dzi.zip"))
	assert.Equal(t, "us-east-1", viper.GetString("s3.region"), "defaults fill the gaps")
}

func TestLoad_BadFile(t *testing.T) {
	viper.Reset()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("storage: [unclosed"), 0644))

	err := Load(cfg)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("TILESINK_DZI_IMAGE_FORMAT", "jpeg")

	require.NoError(t, Load(""))
	assert.Equal(t, "jpeg", viper.GetString("dzi.image_format"))
}
