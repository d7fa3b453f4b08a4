package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	dirName        = "bdedit"
	dbFileName     = "bdedit.db"
	configFileName = "config.toml"

	defaultBDCommand = "bd"
	defaultTimeout   = 30 * time.Second
)

// Config holds resolved settings and the paths of bdedit's state.
type Config struct {
	Dir        string // resolved state directory
	DBPath     string // drafts and journal database
	ConfigPath string // optional config.toml
	EnvVarSet  bool   // whether BDEDIT_PATH was used

	BDCommand string        // bd executable
	Editor    string        // editor command line; empty falls back to $VISUAL/$EDITOR
	Timeout   time.Duration // per bd invocation
	WorkDir   string        // directory bd runs in; empty means the current directory
	Confirm   bool          // ask before applying commands
}

type fileConfig struct {
	BDCommand *string `toml:"bd_command"`
	Editor    *string `toml:"editor"`
	Timeout   *string `toml:"timeout"`
	WorkDir   *string `toml:"work_dir"`
	Confirm   *bool   `toml:"confirm"`
}

// Resolve returns the current configuration. The state directory is
// BDEDIT_PATH when set, otherwise $XDG_CONFIG_HOME/bdedit (or
// ~/.config/bdedit). config.toml in that directory is optional; BDEDIT_BD
// and BDEDIT_EDITOR override it.
func Resolve() (*Config, error) {
	dir, envVarSet, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Dir:        dir,
		DBPath:     filepath.Join(dir, dbFileName),
		ConfigPath: filepath.Join(dir, configFileName),
		EnvVarSet:  envVarSet,
		BDCommand:  defaultBDCommand,
		Timeout:    defaultTimeout,
		Confirm:    true,
	}

	if err := cfg.overlayFromFile(cfg.ConfigPath); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv("BDEDIT_BD")); v != "" {
		cfg.BDCommand = v
	}
	if v := strings.TrimSpace(os.Getenv("BDEDIT_EDITOR")); v != "" {
		cfg.Editor = v
	}

	return cfg, nil
}

func resolveDir() (string, bool, error) {
	if envPath := os.Getenv("BDEDIT_PATH"); envPath != "" {
		return envPath, true, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, dirName), false, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", dirName), false, nil
}

func (c *Config) overlayFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}

	if decoded.BDCommand != nil && strings.TrimSpace(*decoded.BDCommand) != "" {
		c.BDCommand = strings.TrimSpace(*decoded.BDCommand)
	}
	if decoded.Editor != nil {
		c.Editor = strings.TrimSpace(*decoded.Editor)
	}
	if decoded.WorkDir != nil {
		c.WorkDir = strings.TrimSpace(*decoded.WorkDir)
	}
	if decoded.Confirm != nil {
		c.Confirm = *decoded.Confirm
	}
	if decoded.Timeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*decoded.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout in %q: %w", path, err)
		}
		if d <= 0 {
			return fmt.Errorf("parse timeout in %q: must be positive", path)
		}
		c.Timeout = d
	}

	return nil
}

// Exists checks if the state directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.Dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureDir creates the state directory if it does not exist.
func (c *Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", c.Dir, err)
	}
	return nil
}
