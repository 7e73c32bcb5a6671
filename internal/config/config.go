package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nesting levels: MP3CLI_PLAYBACK__WAIT_INTERVAL sets
// playback.wait_interval.
const EnvPrefix = "MP3CLI_"

// Config holds application configuration
type Config struct {
	Playback PlaybackConfig `koanf:"playback"`
	Audio    AudioConfig    `koanf:"audio"`
	Keys     KeyMap         `koanf:"keys"`

	// LogFile receives a line per playback event when set. The terminal is
	// in raw mode while playing, so events are never logged there.
	LogFile string `koanf:"log_file"`
}

// PlaybackConfig controls the driver and listener loop timing.
type PlaybackConfig struct {
	ListenerPoll time.Duration `koanf:"listener_poll"` // key poll timeout per listener iteration
	WaitInterval time.Duration `koanf:"wait_interval"` // driver liveness check period
}

// AudioConfig configures the output device.
type AudioConfig struct {
	SampleRate int           `koanf:"sample_rate"`
	Buffer     time.Duration `koanf:"buffer"`
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	Pause  string `koanf:"pause"`
	Resume string `koanf:"resume"`
	Next   string `koanf:"next"`
	Quit   string `koanf:"quit"`
}

// Sources names the files Load reads. Empty fields are skipped.
type Sources struct {
	ConfigFile string
	EnvFile    string
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Playback: PlaybackConfig{
			ListenerPoll: 100 * time.Millisecond,
			WaitInterval: 500 * time.Millisecond,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Buffer:     100 * time.Millisecond,
		},
		Keys: KeyMap{
			Pause:  "p",
			Resume: "r",
			Next:   "n",
			Quit:   "q",
		},
	}
}

// DefaultSources returns the config file found by GetConfigPath and a .env
// file in the working directory.
func DefaultSources() Sources {
	return Sources{
		ConfigFile: GetConfigPath(),
		EnvFile:    ".env",
	}
}

// Load reads configuration from the default sources.
func Load() (*Config, error) {
	return LoadFrom(DefaultSources())
}

// LoadFrom layers defaults, the TOML config file, the .env file and
// MP3CLI_* environment variables, in that order (last wins).
func LoadFrom(src Sources) (*Config, error) {
	k := koanf.New(".")

	if src.ConfigFile != "" {
		if err := k.Load(file.Provider(src.ConfigFile), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if src.EnvFile != "" {
		if _, err := os.Stat(src.EnvFile); err == nil {
			if err := godotenv.Load(src.EnvFile); err != nil {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LogFile != "" {
		cfg.LogFile = expandPath(cfg.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the player cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Playback.ListenerPoll <= 0:
		return fmt.Errorf("%w: playback.listener_poll must be positive", playerrors.ErrInvalidConfig)
	case c.Playback.WaitInterval <= 0:
		return fmt.Errorf("%w: playback.wait_interval must be positive", playerrors.ErrInvalidConfig)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("%w: audio.sample_rate must be positive", playerrors.ErrInvalidConfig)
	case c.Audio.Buffer <= 0:
		return fmt.Errorf("%w: audio.buffer must be positive", playerrors.ErrInvalidConfig)
	}
	return nil
}

// GetConfigPath returns the config file to read, or "" when there is none.
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		return path
	}

	if path, err := xdg.SearchConfigFile(filepath.Join("mp3cli", "config.toml")); err == nil {
		return path
	}
	return ""
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
