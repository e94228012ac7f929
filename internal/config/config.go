package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Extractor   ExtractorConfig
	Database    DatabaseConfig
	Recognition RecognitionConfig
}

type ExtractorConfig struct {
	URL     string // base URL of the face feature extractor service
	Timeout int    // request timeout in seconds (default 30)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// RecognitionConfig holds the matching thresholds. Defaults come from the
// embedded thresholds.yaml and can be overridden per deployment via env vars.
type RecognitionConfig struct {
	MatchThreshold      float64 `yaml:"match_threshold"`       // max descriptor distance for a recognition match
	SamePersonThreshold float64 `yaml:"same_person_threshold"` // enrollment same-person warning distance
	DescriptorDim       int     `yaml:"descriptor_dim"`        // descriptor vector length
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var rec RecognitionConfig
	if err := yaml.Unmarshal(thresholdsYAML, &rec); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	rec.MatchThreshold = envFloat("MATCH_THRESHOLD", rec.MatchThreshold)
	rec.SamePersonThreshold = envFloat("SAME_PERSON_THRESHOLD", rec.SamePersonThreshold)
	rec.DescriptorDim = envInt("DESCRIPTOR_DIM", rec.DescriptorDim)

	return &Config{
		Extractor: ExtractorConfig{
			URL:     os.Getenv("EXTRACTOR_URL"),
			Timeout: envInt("EXTRACTOR_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognition: rec,
	}
}
