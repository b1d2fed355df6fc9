package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Compute  ComputeConfig
	UI       UIConfig
	Web      WebConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings. An empty path disables worksheet storage.
type DatabaseConfig struct {
	Path string
}

// ComputeConfig selects and tunes the evaluation backend.
type ComputeConfig struct {
	Engine   string
	Command  []string
	SageRoot string `mapstructure:"sage_root"`
	Timeout  time.Duration
}

// UIConfig holds front-end settings.
type UIConfig struct {
	Backend   string
	Worksheet string
}

// WebConfig holds settings for the web front-end.
type WebConfig struct {
	Addr string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
}

// Flag names bound onto config keys by Load.
var flagKeys = map[string]string{
	"backend":   "ui.backend",
	"worksheet": "ui.worksheet",
	"addr":      "web.addr",
	"db":        "database.path",
	"engine":    "compute.engine",
	"log-level": "log.level",
	"log-file":  "log.file",
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("notebook", pflag.ContinueOnError)
	flags.String("backend", "", "front-end: text, web or gtk")
	flags.String("worksheet", "", "name of the worksheet to open")
	flags.String("addr", "", "listen address of the web front-end")
	flags.String("db", "", "sqlite database path for worksheets")
	flags.String("engine", "", "compute engine: starlark, process or sage")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.Bool("debug", false, "expose the application to a debug REPL")
	flags.Bool("save-config", false, "write the effective configuration to the config file and exit")
	return flags
}

func defaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "notebook", "config.toml")
}

// Path is the config file read by Load and written by Save.
func Path() string {
	if path := os.Getenv("NOTEBOOK_CONFIG"); path != "" {
		return path
	}
	return defaultPath()
}

// Load reads configuration from file, env and flags. Env var overrides use prefix NOTEBOOK_.
// flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "notebook", "notebook.db"))
	v.SetDefault("compute.engine", "starlark")
	v.SetDefault("compute.command", []string{})
	v.SetDefault("compute.sage_root", "")
	v.SetDefault("compute.timeout", 5*time.Minute)
	v.SetDefault("ui.backend", "text")
	v.SetDefault("ui.worksheet", "default")
	v.SetDefault("web.addr", "127.0.0.1:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("NOTEBOOK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Dir(defaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("NOTEBOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("compute.engine", cfg.Compute.Engine)
	v.Set("compute.command", cfg.Compute.Command)
	v.Set("compute.sage_root", cfg.Compute.SageRoot)
	v.Set("compute.timeout", cfg.Compute.Timeout.String())
	v.Set("ui.backend", cfg.UI.Backend)
	v.Set("ui.worksheet", cfg.UI.Worksheet)
	v.Set("web.addr", cfg.Web.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
