package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/pkg/types"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "STREAM_MANAGER_"

// Config is the process configuration. Values are resolved with the
// precedence CLI flags > environment > config file > defaults. The source
// list and transition schedule are fixed inputs for the lifetime of the
// workers built from them.
type Config struct {
	Addr      string `toml:"addr"`
	LogLevel  string `toml:"log_level"`
	LogColor  bool   `toml:"log_color"`
	SecretKey string `toml:"-"` // environment only, never persisted

	Sources SourcesConfig `toml:"sources"`
	Mixer   MixerConfig   `toml:"mixer"`
}

// SourcesConfig describes the upstream camera endpoints.
type SourcesConfig struct {
	URLs                  []string `toml:"urls"`
	UserAgent             string   `toml:"user_agent"`
	ConnectTimeoutSeconds float64  `toml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    float64  `toml:"read_timeout_seconds"`
	ProbeTimeoutSeconds   float64  `toml:"probe_timeout_seconds"`
}

// MixerConfig describes the crossfade compositor.
type MixerConfig struct {
	TransitionIntervalSeconds float64 `toml:"transition_interval_seconds"`
	TransitionDurationSeconds float64 `toml:"transition_duration_seconds"`
	TargetFPS                 int     `toml:"target_fps"`
	SourceA                   int     `toml:"source_a"`
	SourceB                   int     `toml:"source_b"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		LogColor: true,
		Sources: SourcesConfig{
			UserAgent:             "OctoPrint-Stream-Viewer/1.0",
			ConnectTimeoutSeconds: 5,
			ReadTimeoutSeconds:    5,
			ProbeTimeoutSeconds:   2,
		},
		Mixer: MixerConfig{
			TransitionIntervalSeconds: 30,
			TransitionDurationSeconds: 3,
			TargetFPS:                 30,
			SourceA:                   1,
			SourceB:                   2,
		},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "SECRET_KEY"); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv(EnvPrefix + "SOURCES"); v != "" {
		parts := strings.Split(v, ",")
		urls := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				urls = append(urls, p)
			}
		}
		c.Sources.URLs = urls
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Sources.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSITION_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Mixer.TransitionIntervalSeconds = f
		}
	}
	if v := os.Getenv(EnvPrefix + "TRANSITION_DURATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Mixer.TransitionDurationSeconds = f
		}
	}
	if v := os.Getenv(EnvPrefix + "TARGET_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Mixer.TargetFPS = n
		}
	}
}

// Validate checks invariants that the workers rely on.
func (c *Config) Validate() error {
	if len(c.Sources.URLs) == 0 {
		return fmt.Errorf("no source URLs configured")
	}
	if !c.Schedule().Valid() {
		return fmt.Errorf("transition interval and duration must be positive")
	}
	if c.Mixer.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %d", c.Mixer.TargetFPS)
	}
	n := len(c.Sources.URLs)
	if c.Mixer.SourceA < 1 || c.Mixer.SourceA > n {
		return fmt.Errorf("mixer source_a %d out of range 1..%d", c.Mixer.SourceA, n)
	}
	if c.Mixer.SourceB < 1 || c.Mixer.SourceB > n {
		return fmt.Errorf("mixer source_b %d out of range 1..%d", c.Mixer.SourceB, n)
	}
	return nil
}

// ConnectTimeout returns the bounded connect/read-header timeout for
// source connections.
func (c *Config) ConnectTimeout() time.Duration {
	return secondsToDuration(c.Sources.ConnectTimeoutSeconds, 5*time.Second)
}

// ReadTimeout returns the maximum time between bytes on a source stream
// before the connection is considered dead.
func (c *Config) ReadTimeout() time.Duration {
	return secondsToDuration(c.Sources.ReadTimeoutSeconds, 5*time.Second)
}

// ProbeTimeout returns the bounded timeout for a startup reachability probe.
func (c *Config) ProbeTimeout() time.Duration {
	return secondsToDuration(c.Sources.ProbeTimeoutSeconds, 2*time.Second)
}

// Schedule returns the mixer transition schedule.
func (c *Config) Schedule() types.TransitionSchedule {
	return types.TransitionSchedule{
		Interval: secondsToDuration(c.Mixer.TransitionIntervalSeconds, 0),
		Duration: secondsToDuration(c.Mixer.TransitionDurationSeconds, 0),
	}
}

// TickInterval returns the mixer output period derived from the target FPS.
func (c *Config) TickInterval() time.Duration {
	if c.Mixer.TargetFPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Mixer.TargetFPS)
}

func secondsToDuration(s float64, fallback time.Duration) time.Duration {
	if s <= 0 {
		return fallback
	}
	return time.Duration(s * float64(time.Second))
}
