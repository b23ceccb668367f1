package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Gallery
	ImagesDir    string `envconfig:"IMAGES_DIR" default:"data/images"`
	RegistryPath string `envconfig:"REGISTRY_PATH" default:"data/registry.json"`
	MaxUploadMB  int    `envconfig:"MAX_UPLOAD_MB" default:"8"`

	// Matching
	MatchThreshold float64 `envconfig:"FACE_MATCH_THRESHOLD" default:"0.6"`
	MatcherType    string  `envconfig:"MATCHER_TYPE" default:"exact"`

	// Embedder
	EmbedderType string        `envconfig:"EMBEDDER_TYPE" default:"mock"`
	DeepFaceURL  string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	EmbedTimeout time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`

	// Rate limiting
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.MatchThreshold < 0 {
		return nil, fmt.Errorf("load config: FACE_MATCH_THRESHOLD must be non-negative, got %v", cfg.MatchThreshold)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
