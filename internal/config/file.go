package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
)

// Reference identifiers advertised by the headset firmware.
const (
	DefaultDeviceName         = "ESP32C6_EEG"
	DefaultServiceUUID        = "6910123a-eb0d-4c35-9a60-bebe1dcb549d"
	DefaultCharacteristicUUID = "5f4f1107-7fc1-43b2-a540-0aa1a9f1ce78"
)

// Config holds the application configuration
type Config struct {
	DeviceName         string           `yaml:"device_name"`
	ServiceUUID        string           `yaml:"service_uuid"`
	CharacteristicUUID string           `yaml:"characteristic_uuid"`
	ScanTimeout        time.Duration    `yaml:"scan_timeout"`
	ConnectTimeout     time.Duration    `yaml:"connect_timeout"`
	Highlight          time.Duration    `yaml:"highlight"`
	HistorySize        int              `yaml:"history_size"`
	Speech             Speech           `yaml:"speech"`
	Options            []catalog.Option `yaml:"options"`
	LogFile            string           `yaml:"log_file"`
}

// Speech configures the external text-to-speech command. The text to speak
// is appended as the final argument.
type Speech struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DeviceName:         DefaultDeviceName,
		ServiceUUID:        DefaultServiceUUID,
		CharacteristicUUID: DefaultCharacteristicUUID,
		ScanTimeout:        15 * time.Second,
		ConnectTimeout:     30 * time.Second,
		Highlight:          3 * time.Second,
		HistorySize:        50,
		Speech: Speech{
			Command: "espeak-ng",
			Args:    []string{"-v", "en-us"},
		},
		Options: append([]catalog.Option(nil), catalog.DefaultOptions...),
		LogFile: defaultLogFile(),
	}
}

// DefaultPath returns the path where the config file should be located
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "neuromenu", "config.yaml")
}

func defaultLogFile() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(cacheDir, "neuromenu", "neuromenu.log")
}

// Load reads the configuration from path, or from DefaultPath when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.LogFile = expandPath(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot fall back to a default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServiceUUID) == "" {
		return fmt.Errorf("service_uuid is required")
	}
	if strings.TrimSpace(c.CharacteristicUUID) == "" {
		return fmt.Errorf("characteristic_uuid is required")
	}
	if len(c.Options) == 0 {
		return fmt.Errorf("at least one option is required")
	}
	seen := make(map[int]bool, len(c.Options))
	for _, o := range c.Options {
		if o.ID < 1 || o.ID > 255 {
			return fmt.Errorf("option id %d out of range 1-255", o.ID)
		}
		if strings.TrimSpace(o.Label) == "" {
			return fmt.Errorf("option %d has an empty label", o.ID)
		}
		if seen[o.ID] {
			return fmt.Errorf("option id %d listed twice", o.ID)
		}
		seen[o.ID] = true
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 15 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.Highlight <= 0 {
		c.Highlight = 3 * time.Second
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 50
	}
	return nil
}

// Catalog builds the option catalog from the configured options.
func (c *Config) Catalog() *catalog.Catalog {
	return catalog.New(c.Options)
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}
