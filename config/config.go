package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port     string
	StoreDir string
	TempDir  string

	// Database (optional; in-memory status store is used when empty)
	DatabaseURL string

	// Quality gate
	MinVisualsPerScene    int
	AudioToleranceSeconds float64

	// Output settings
	VideoWidth      int
	VideoHeight     int
	VideoFPS        int
	VideoBitrate    string
	AudioBitrate    string
	AudioSampleRate int
	VideoCodec      string

	// Transition settings
	TransitionDuration float64

	// Execution limits
	MaxConcurrentSegments    int
	DownloadMaxRetries       int
	ProbeMaxRetries          int
	SubprocessTimeoutSeconds int
	DownloadTimeoutSeconds   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		StoreDir: getEnv("STORE_DIR", "./data/projects"),
		TempDir:  getEnv("TEMP_DIR", "./data/temp"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Quality gate
		MinVisualsPerScene:    getEnvAsInt("MIN_VISUALS_PER_SCENE", 3),
		AudioToleranceSeconds: getEnvAsFloat("AUDIO_TOLERANCE_SECONDS", 2.0),

		// Output settings
		VideoWidth:      getEnvAsInt("VIDEO_WIDTH", 1920),
		VideoHeight:     getEnvAsInt("VIDEO_HEIGHT", 1080),
		VideoFPS:        getEnvAsInt("VIDEO_FPS", 30),
		VideoBitrate:    getEnv("VIDEO_BITRATE", "5M"),
		AudioBitrate:    getEnv("AUDIO_BITRATE", "192k"),
		AudioSampleRate: getEnvAsInt("AUDIO_SAMPLE_RATE", 44100),
		VideoCodec:      getEnv("VIDEO_CODEC", "libx264"),

		// Transition settings
		TransitionDuration: getEnvAsFloat("TRANSITION_DURATION", 0.5),

		// Execution limits
		MaxConcurrentSegments:    getEnvAsInt("MAX_CONCURRENT_SEGMENTS", 4),
		DownloadMaxRetries:       getEnvAsInt("DOWNLOAD_MAX_RETRIES", 3),
		ProbeMaxRetries:          getEnvAsInt("PROBE_MAX_RETRIES", 3),
		SubprocessTimeoutSeconds: getEnvAsInt("SUBPROCESS_TIMEOUT_SECONDS", 600),
		DownloadTimeoutSeconds:   getEnvAsInt("DOWNLOAD_TIMEOUT_SECONDS", 120),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return errors.New("STORE_DIR is required")
	}
	if c.MinVisualsPerScene <= 0 {
		return errors.New("MIN_VISUALS_PER_SCENE must be positive")
	}
	if c.AudioToleranceSeconds < 0 {
		return errors.New("AUDIO_TOLERANCE_SECONDS must not be negative")
	}
	if c.VideoWidth <= 0 || c.VideoHeight <= 0 {
		return errors.New("VIDEO_WIDTH and VIDEO_HEIGHT must be positive")
	}
	if c.VideoFPS <= 0 {
		return errors.New("VIDEO_FPS must be positive")
	}
	if c.MaxConcurrentSegments <= 0 {
		return errors.New("MAX_CONCURRENT_SEGMENTS must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func (c *Config) String() string {
	db := "memory"
	if c.DatabaseURL != "" {
		db = "postgres"
	}
	return fmt.Sprintf("Config{Port: %s, Store: %s, MinVisuals: %d, Output: %dx%d@%d, Status: %s}",
		c.Port, strings.TrimSuffix(c.StoreDir, "/"), c.MinVisualsPerScene,
		c.VideoWidth, c.VideoHeight, c.VideoFPS, db)
}
