// Package config resolves where credentials live and how fast we may call
// Google. Sources, lowest precedence first: built-in defaults, the TOML file
// under the XDG config dir, a .env file in the working directory, then the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const appName = "gworkspace"

// Environment variables read by Load.
const (
	EnvTokenPath       = "GOOGLE_TOKEN_PATH"
	EnvCredentialsPath = "GOOGLE_CREDENTIALS_PATH"
	EnvRPS             = "GWORKSPACE_RPS"
	EnvRedirectPort    = "GWORKSPACE_REDIRECT_PORT"
)

type Config struct {
	TokenPath       string   `toml:"token_path"`
	CredentialsPath string   `toml:"credentials_path"`
	Scopes          []string `toml:"scopes"`
	RedirectPort    int      `toml:"redirect_port"`
	// RequestsPerSecond overrides every API's default rate when positive.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

func Default() Config {
	return Config{
		TokenPath:       filepath.Join(xdg.DataHome, appName, "token.json"),
		CredentialsPath: filepath.Join(xdg.ConfigHome, appName, "credentials.json"),
		RedirectPort:    8080,
	}
}

// FilePath is the optional TOML config location.
func FilePath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Load applies every source in order. Missing files are not errors.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(FilePath(), os.Getenv)
}

// LoadFile layers the TOML file at path (if present) and then getenv over
// the defaults.
func LoadFile(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvTokenPath); v != "" {
		cfg.TokenPath = v
	}
	if v := getenv(EnvCredentialsPath); v != "" {
		cfg.CredentialsPath = v
	}
	if v := getenv(EnvRPS); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return fmt.Errorf("%s: want a positive number, got %q", EnvRPS, v)
		}
		cfg.RequestsPerSecond = rps
	}
	if v := getenv(EnvRedirectPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("%s: want a port number, got %q", EnvRedirectPort, v)
		}
		cfg.RedirectPort = port
	}
	return nil
}
