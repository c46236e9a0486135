package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "SCREENCAPTURE_"

// ApplyEnv overrides settings from SCREENCAPTURE_* environment variables.
// Unset, empty and unparsable values leave the current value in place.
func (c *Config) ApplyEnv() {
	s := &c.Settings
	s.OutputDir = envOr("OUTPUT_DIR", s.OutputDir)
	s.LogLevel = envOr("LOG_LEVEL", s.LogLevel)

	s.Browser.Path = envOr("BROWSER_PATH", s.Browser.Path)
	s.Browser.Timeout.Duration = envDuration("BROWSER_TIMEOUT", s.Browser.Timeout.Duration)
	s.Browser.NoSandbox = envBool("NO_SANDBOX", s.Browser.NoSandbox)
	s.Browser.AutoDownload = envBool("AUTO_DOWNLOAD", s.Browser.AutoDownload)

	s.Upload.URL = envOr("UPLOAD_URL", s.Upload.URL)
	s.Upload.Token = envOr("UPLOAD_TOKEN", s.Upload.Token)
	s.Upload.ChunkSize = envInt("CHUNK_SIZE", s.Upload.ChunkSize)

	s.PDFShift.Key = envOr("PDFSHIFT_KEY", s.PDFShift.Key)
	s.PDFShift.Endpoint = envOr("PDFSHIFT_ENDPOINT", s.PDFShift.Endpoint)
	s.PDFShift.Sandbox = envBool("PDFSHIFT_SANDBOX", s.PDFShift.Sandbox)

	s.Sink.Addr = envOr("SINK_ADDR", s.Sink.Addr)
	s.Sink.Dir = envOr("SINK_DIR", s.Sink.Dir)
	s.Sink.RedisURL = envOr("REDIS_URL", s.Sink.RedisURL)
	s.Sink.Token = envOr("SINK_TOKEN", s.Sink.Token)

	c.Request.Logging = envBool("LOGGING", c.Request.Logging)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, ok := ParseBool(os.Getenv(EnvPrefix + key)); ok {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
