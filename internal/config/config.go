package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/anchor/internal/presenter"
)

// Config is everything the demo host reads at startup.
type Config struct {
	Presenter presenter.Config

	Theme     string
	StatePath string
	LogPath   string
	LogLevel  string
	Delivery  string
	TickEvery time.Duration
	// LogViewCalls logs every call the presenter makes on its view.
	LogViewCalls bool
}

const (
	defaultConfigPath = "~/.config/anchor/config.toml"
	defaultStatePath  = "~/.local/share/anchor/state.db"
	defaultTheme      = "Dracula"
	defaultLogLevel   = "info"
	defaultDelivery   = "latest-cache"
	defaultTickEvery  = time.Second
)

type rawPresenter struct {
	Retain               *bool `toml:"retain"`
	UseSavior            *bool `toml:"use_savior"`
	CallOnMainThread     *bool `toml:"call_on_main_thread"`
	DistinctUntilChanged *bool `toml:"distinct_until_changed"`
}

type rawUI struct {
	Theme     string `toml:"theme"`
	StatePath string `toml:"state_path"`
	LogPath   string `toml:"log_path"`
	LogLevel  string `toml:"log_level"`
	Delivery  string `toml:"delivery"`
	TickEvery string `toml:"tick_every"`

	LogViewCalls *bool `toml:"log_view_calls"`
}

type rawConfig struct {
	Presenter rawPresenter `toml:"presenter"`
	UI        rawUI        `toml:"ui"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Presenter: presenter.DefaultConfig(),
		Theme:     defaultTheme,
		StatePath: mustExpand(defaultStatePath),
		LogLevel:  defaultLogLevel,
		Delivery:  defaultDelivery,
		TickEvery: defaultTickEvery,
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	applyBool(&cfg.Presenter.RetainPresenter, raw.Presenter.Retain)
	applyBool(&cfg.Presenter.UseSaviorToRetain, raw.Presenter.UseSavior)
	applyBool(&cfg.Presenter.CallOnMainThread, raw.Presenter.CallOnMainThread)
	applyBool(&cfg.Presenter.DistinctUntilChanged, raw.Presenter.DistinctUntilChanged)
	applyBool(&cfg.LogViewCalls, raw.UI.LogViewCalls)

	if theme := strings.TrimSpace(raw.UI.Theme); theme != "" {
		cfg.Theme = theme
	}
	if statePath := strings.TrimSpace(raw.UI.StatePath); statePath != "" {
		cfg.StatePath = mustExpand(statePath)
	}
	if logPath := strings.TrimSpace(raw.UI.LogPath); logPath != "" {
		cfg.LogPath = mustExpand(logPath)
	}
	if level := strings.TrimSpace(raw.UI.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if delivery := strings.TrimSpace(raw.UI.Delivery); delivery != "" {
		cfg.Delivery = strings.ToLower(delivery)
	}
	if every := strings.TrimSpace(raw.UI.TickEvery); every != "" {
		d, err := time.ParseDuration(every)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: tick_every: %w", err)
		}
		if d > 0 {
			cfg.TickEvery = d
		}
	}

	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	p := cfg.Presenter
	raw := rawConfig{
		Presenter: rawPresenter{
			Retain:               &p.RetainPresenter,
			UseSavior:            &p.UseSaviorToRetain,
			CallOnMainThread:     &p.CallOnMainThread,
			DistinctUntilChanged: &p.DistinctUntilChanged,
		},
		UI: rawUI{
			Theme:     cfg.Theme,
			StatePath: cfg.StatePath,
			LogPath:   cfg.LogPath,
			LogLevel:  cfg.LogLevel,
			Delivery:  cfg.Delivery,

			LogViewCalls: &cfg.LogViewCalls,
		},
	}
	if cfg.TickEvery > 0 {
		raw.UI.TickEvery = cfg.TickEvery.String()
	}

	bytes, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
