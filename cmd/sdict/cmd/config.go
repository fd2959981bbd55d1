package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/TheusHen/sdict/sdict"
	"github.com/TheusHen/sdict/sdict/session"
)

var errNoAddr = errors.New("config: addr is required")

type fileConfig struct {
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	SetPassword string `toml:"set_password"`
	CacheDir    string `toml:"cache_dir"`
	Timeout     string `toml:"timeout"`
	LogLevel    string `toml:"log_level"`
}

// config is the resolved CLI configuration.
type config struct {
	Client   sdict.Config
	LogLevel zerolog.Level
}

func defaultConfig() config {
	cfg := config{LogLevel: zerolog.InfoLevel}
	cfg.Client.Timeout = session.DefaultTimeout
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.Client.CacheDir = filepath.Join(dir, "sdict")
	}
	return cfg
}

// loadConfig reads a TOML file and applies it over the defaults. An empty
// cache_dir disables the snapshot cache.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Client.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("password") {
		cfg.Client.Password = raw.Password
	}
	if meta.IsDefined("set_password") {
		cfg.Client.SetPassword = raw.SetPassword
	}
	if meta.IsDefined("cache_dir") {
		cfg.Client.CacheDir = strings.TrimSpace(raw.CacheDir)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return config{}, fmt.Errorf("parse timeout: %w", err)
		}
		if d <= 0 {
			return config{}, fmt.Errorf("parse timeout: %s is not positive", d)
		}
		cfg.Client.Timeout = d
	}
	if meta.IsDefined("log_level") {
		lvl, err := parseLevel(raw.LogLevel)
		if err != nil {
			return config{}, err
		}
		cfg.LogLevel = lvl
	}

	if cfg.Client.Addr == "" {
		return config{}, errNoAddr
	}
	return cfg, nil
}

func parseLevel(raw string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return lvl, nil
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "sdict").Logger()
}
