// Package config reads the optional transcut.yml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FileName   = "transcut.yml"
	AppDirName = "transcut"
	EnvPath    = "TRANSCUT_CONFIG"
)

type Config struct {
	// Tool binaries; empty means look them up on PATH.
	FFmpeg  string `yaml:"ffmpeg,omitempty"`
	FFprobe string `yaml:"ffprobe,omitempty"`
	Whisper string `yaml:"whisper,omitempty"`

	// Where downloaded whisper.cpp models are cached.
	ModelsDir string `yaml:"models_dir,omitempty"`
	// Model name from the whisper.cpp registry (e.g. "base", "small.en").
	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language,omitempty"`

	// TranscribeTimeout bounds one transcription (e.g. "30m"). Zero disables it.
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout,omitempty"`
	// ModelWaitTimeout fails queued transcriptions if the model never loads.
	ModelWaitTimeout time.Duration `yaml:"model_wait_timeout,omitempty"`

	// Default export directory
	OutDir string `yaml:"out_dir,omitempty"`

	OpenRouter OpenRouterConfig `yaml:"openrouter,omitempty"`
}

// OpenRouterConfig holds chat model settings. The API key only comes from
// the environment.
type OpenRouterConfig struct {
	Model        string   `yaml:"model,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
}

func Default() *Config {
	return &Config{
		FFmpeg:            "ffmpeg",
		FFprobe:           "ffprobe",
		Whisper:           "whisper-cli",
		ModelsDir:         DefaultModelsDir(),
		Model:             "base",
		Language:          "en",
		TranscribeTimeout: 30 * time.Minute,
		OutDir:            "out",
	}
}

// Dir returns the per-user config directory.
// Windows: %APPDATA%\transcut\
// macOS/Linux: ~/.config/transcut/
func Dir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

func DefaultModelsDir() string {
	dir, err := Dir()
	if err != nil {
		return filepath.Join(".cache", "models")
	}
	return filepath.Join(dir, "models")
}

// Path picks the config file: $TRANSCUT_CONFIG, then ./transcut.yml, then
// the per-user config directory. The result may not exist.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if dir, err := Dir(); err == nil {
		return filepath.Join(dir, FileName)
	}
	return FileName
}

// Load reads path over the defaults. A missing file yields the defaults;
// an explicitly named missing file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ModelsDir = expandPath(cfg.ModelsDir)
	cfg.OutDir = expandPath(cfg.OutDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpeg) == "" || strings.TrimSpace(c.FFprobe) == "" {
		return fmt.Errorf("ffmpeg and ffprobe paths must not be empty")
	}
	if strings.TrimSpace(c.Whisper) == "" {
		return fmt.Errorf("whisper path must not be empty")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.TranscribeTimeout < 0 || c.ModelWaitTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

// Save writes cfg as YAML with a short header.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	header := "# transcut configuration file\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != '\\' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	sub := strings.TrimLeft(path[1:], `/\`)
	return filepath.Join(home, sub)
}
