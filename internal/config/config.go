// Package config holds conversion settings: defaults, YAML files,
// MARKITUP_* environment overrides and a synchronized store for
// long-running processes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Image naming modes.
const (
	NamingTimestamp = "timestamp"
	NamingAI        = "ai"
)

// FileName is looked up next to the executable when no path is given.
const FileName = "markitup.yaml"

const envPrefix = "MARKITUP_"

// Config is the complete set of conversion settings.
type Config struct {
	// ImageDir is where extracted images are saved. Empty embeds them inline.
	ImageDir string `yaml:"image_dir" json:"image_dir"`
	// OutputPath is the Markdown file being written, if any.
	OutputPath  string   `yaml:"output_path" json:"output_path"`
	ImageNaming string   `yaml:"image_naming" json:"image_naming"`
	AI          AIConfig `yaml:"ai" json:"ai"`
	// SpeechModel enables audio transcription when set.
	SpeechModel string `yaml:"speech_model" json:"speech_model"`
	MaxFileSize int64  `yaml:"max_file_size" json:"max_file_size"`
	Workers     int    `yaml:"workers" json:"workers"`
	Listen      string `yaml:"listen" json:"listen"`
}

// AIConfig points at an OpenAI-compatible endpoint.
type AIConfig struct {
	APIKey   string        `yaml:"api_key" json:"api_key"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ImageNaming: NamingTimestamp,
		AI: AIConfig{
			Endpoint: "https://ark.cn-beijing.volces.com/api/v3",
			Timeout:  30 * time.Second,
		},
		MaxFileSize: 200 << 20,
		Workers:     4,
		Listen:      "127.0.0.1:8080",
	}
}

// Load builds a Config from the defaults, the YAML file at path and the
// environment, in that order. An empty path tries FileName next to the
// executable and ignores it when absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if exe, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exe), FileName)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"IMAGE_DIR":    &cfg.ImageDir,
		"OUTPUT_PATH":  &cfg.OutputPath,
		"IMAGE_NAMING": &cfg.ImageNaming,
		"AI_API_KEY":   &cfg.AI.APIKey,
		"AI_ENDPOINT":  &cfg.AI.Endpoint,
		"AI_MODEL":     &cfg.AI.Model,
		"SPEECH_MODEL": &cfg.SpeechModel,
		"LISTEN":       &cfg.Listen,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "AI_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sAI_TIMEOUT: %w", envPrefix, err)
		}
		cfg.AI.Timeout = d
	}
	if v, ok := lookup(envPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_FILE_SIZE: %w", envPrefix, err)
		}
		cfg.MaxFileSize = n
	}
	if v, ok := lookup(envPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", envPrefix, err)
		}
		cfg.Workers = n
	}
	return nil
}

// Validate checks that values are usable.
func (c Config) Validate() error {
	switch c.ImageNaming {
	case NamingTimestamp, NamingAI:
	default:
		return fmt.Errorf("image_naming must be %q or %q, got %q", NamingTimestamp, NamingAI, c.ImageNaming)
	}
	if c.MaxFileSize < 0 {
		return errors.New("max_file_size must be >= 0")
	}
	if c.Workers < 1 {
		return errors.New("workers must be > 0")
	}
	if c.AI.Timeout < 0 {
		return errors.New("ai.timeout must be >= 0")
	}
	return nil
}

// Redacted returns a copy safe to show to clients.
func (c Config) Redacted() Config {
	if c.AI.APIKey != "" {
		c.AI.APIKey = "********"
	}
	return c
}

// Store shares one Config between concurrent conversions. Readers take
// snapshots; writers replace the value under the lock.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore returns a store holding cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to a copy of the settings and stores the result if it
// validates. The stored value is unchanged on error.
func (s *Store) Update(fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.cfg, err
	}
	s.cfg = next
	return next, nil
}
