package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "data/images", cfg.ImagesDir)
	assert.Equal(t, "data/registry.json", cfg.RegistryPath)
	assert.Equal(t, 8, cfg.MaxUploadMB)
	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, "exact", cfg.MatcherType)
	assert.Equal(t, "mock", cfg.EmbedderType)
	assert.Equal(t, "http://localhost:5005", cfg.DeepFaceURL)
	assert.Equal(t, 30*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
	assert.Equal(t, 100, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("IMAGES_DIR", "/var/lib/facecheck/images")
	t.Setenv("FACE_MATCH_THRESHOLD", "0.45")
	t.Setenv("MATCHER_TYPE", "hnsw")
	t.Setenv("EMBEDDER_TYPE", "deepface")
	t.Setenv("EMBED_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "/var/lib/facecheck/images", cfg.ImagesDir)
	assert.Equal(t, 0.45, cfg.MatchThreshold)
	assert.Equal(t, "hnsw", cfg.MatcherType)
	assert.Equal(t, "deepface", cfg.EmbedderType)
	assert.Equal(t, 5*time.Second, cfg.EmbedTimeout)
}

func TestLoad_NegativeThreshold(t *testing.T) {
	os.Clearenv()
	t.Setenv("FACE_MATCH_THRESHOLD", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_EnvironmentHelpers(t *testing.T) {
	dev := &Config{Environment: "development"}
	assert.True(t, dev.IsDevelopment())
	assert.False(t, dev.IsProduction())

	prod := &Config{Environment: "production"}
	assert.False(t, prod.IsDevelopment())
	assert.True(t, prod.IsProduction())
}
