package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmarceau/streamgate/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port          string
	DBPath        string
	TmpDir        string
	YTDLPPath     string
	FFmpegPath    string
	CookiesFile   string
	APIKey        string
	LogLevel      string
	LogFormat     string
	MaxBandwidth  string
	MaxConcurrent int
	RateLimitRPM  int
	JobRetention  time.Duration
	JobTimeout    time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		TmpDir:        getEnv("TMP_DIR", constants.DefaultTmpDir),
		YTDLPPath:     getEnv("YTDLP_PATH", constants.DefaultYTDLPPath),
		FFmpegPath:    getEnv("FFMPEG_PATH", constants.DefaultFFmpegPath),
		CookiesFile:   getEnv("COOKIES_FILE", ""),
		APIKey:        getEnv("API_KEY", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		MaxBandwidth:  getEnv("MAX_BANDWIDTH", ""),
		MaxConcurrent: getEnvInt("MAX_CONCURRENT", constants.DefaultConcurrency),
		RateLimitRPM:  getEnvInt("RATE_LIMIT_RPM", constants.DefaultRateLimitRPM),
		JobRetention:  getEnvDuration("JOB_RETENTION", constants.DefaultJobRetention),
		JobTimeout:    getEnvDuration("JOB_TIMEOUT", 0),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.TmpDir == "" {
		errors = append(errors, "TMP_DIR cannot be empty")
	}

	if c.YTDLPPath == "" {
		errors = append(errors, "YTDLP_PATH cannot be empty")
	}

	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("MAX_CONCURRENT must be at least 1, got: %d", c.MaxConcurrent))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_RPM must be at least 1, got: %d", c.RateLimitRPM))
	}

	if c.JobRetention <= 0 {
		errors = append(errors, fmt.Sprintf("JOB_RETENTION must be positive, got: %s", c.JobRetention))
	}

	if c.JobTimeout < 0 {
		errors = append(errors, fmt.Sprintf("JOB_TIMEOUT cannot be negative, got: %s", c.JobTimeout))
	}

	if c.MaxBandwidth != "" && !validBandwidth(c.MaxBandwidth) {
		errors = append(errors, fmt.Sprintf("MAX_BANDWIDTH must look like 500K, 4.2M or 2G, got: %s", c.MaxBandwidth))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validBandwidth accepts the rate syntax yt-dlp takes for --limit-rate:
// a number with an optional K/M/G suffix.
func validBandwidth(s string) bool {
	s = strings.ToUpper(s)
	if strings.HasSuffix(s, "K") || strings.HasSuffix(s, "M") || strings.HasSuffix(s, "G") {
		s = s[:len(s)-1]
	}
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
