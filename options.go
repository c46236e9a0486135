package screencapture

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// browserConfig holds internal configuration for a Browser.
type browserConfig struct {
	chromePath     string
	timeout        time.Duration
	noSandbox      bool
	autoDownload   bool
	headless       string
	viewportWidth  int
	viewportHeight int
	logger         *log.Logger
}

func defaultConfig() browserConfig {
	return browserConfig{
		timeout:        60 * time.Second,
		headless:       "new",
		viewportWidth:  1280,
		viewportHeight: 800,
		logger:         log.New(io.Discard),
	}
}

// Option configures a [Browser].
type Option func(*browserConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *browserConfig) {
		c.chromePath = path
	}
}

// WithTimeout bounds every page operation: navigation, rasterization and
// printing. Defaults to 60 seconds. A zero or negative value disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *browserConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *browserConfig) {
		c.noSandbox = true
	}
}

// WithAutoDownload fetches a compatible Chromium build when no path is
// given. The binary is cached between runs.
func WithAutoDownload() Option {
	return func(c *browserConfig) {
		c.autoDownload = true
	}
}

// WithViewport sets the size of new tabs in CSS pixels. Non-positive values
// keep the default of 1280x800.
func WithViewport(width, height int) Option {
	return func(c *browserConfig) {
		if width > 0 {
			c.viewportWidth = width
		}
		if height > 0 {
			c.viewportHeight = height
		}
	}
}

// WithLogger sets the logger for browser and page events.
func WithLogger(l *log.Logger) Option {
	return func(c *browserConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
