package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kbukum/workerbridge/logger"
)

// FileSystem abstracts file lookups for testing.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// LoadEnv loads path into the process environment without overriding
// variables that are already set.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Defaulter is implemented by configs that fill in missing values.
type Defaulter interface {
	ApplyDefaults()
}

// Validatable is implemented by configs that check themselves.
type Validatable interface {
	Validate() error
}

// Resolver finds config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles are the files Load will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from lc, searching standard
// locations for any that are unset.
func (r *Resolver) ResolveFiles(serviceName string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(
			fmt.Sprintf("./cmd/%s/config.yml", serviceName),
			"./config/config.yml",
			"./config.yml",
		)
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(
			fmt.Sprintf("./cmd/%s/.env", serviceName),
			fmt.Sprintf("./.env.%s", serviceName),
			"./.env",
		)
	}
	return files
}

func (r *Resolver) first(paths ...string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoaderConfig holds loader dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
	Flags      *pflag.FlagSet
	Logger     *logger.Logger
}

// LoaderOption configures Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the filesystem used for lookups.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit YAML file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix. The default is
// the upper-cased service name.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithFlags binds command-line flags named after config keys
// ("server.port"). Flags that were set win over the environment.
func WithFlags(fs *pflag.FlagSet) LoaderOption {
	return func(lc *LoaderConfig) { lc.Flags = fs }
}

// WithLogger sets the logger used for load warnings.
func WithLogger(l *logger.Logger) LoaderOption {
	return func(lc *LoaderConfig) { lc.Logger = l }
}

// Load fills cfg from the resolved files and the environment.
func Load(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = EnvPrefix(serviceName)
	}
	if lc.Logger == nil {
		lc.Logger = logger.NewDefault(serviceName).WithComponent("config")
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			lc.Logger.Warn("failed to load env file", logger.Fields("path", files.EnvFile, "error", err.Error()))
		}
	}
	if err := bindEnv(v, lc.EnvPrefix, os.Environ()); err != nil {
		return err
	}
	if lc.Flags != nil {
		if err := v.BindPFlags(lc.Flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validatable); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("invalid config for %s: %w", serviceName, err)
		}
	}

	lc.Logger.Debug("config loaded", logger.Fields("config_file", files.ConfigFile, "env_file", files.EnvFile))
	return nil
}

// EnvPrefix derives the environment prefix from a service name.
func EnvPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}

// bindEnv binds every PREFIX_A__B_C variable to key a.b_c.
func bindEnv(v *viper.Viper, prefix string, environ []string) error {
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key := EnvKey(prefix, name); key != "" {
			if err := v.BindEnv(key, name); err != nil {
				return fmt.Errorf("bind %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnvKey maps an environment variable name to a config key, or "" when the
// name does not carry prefix.
func EnvKey(prefix, name string) string {
	rest, ok := strings.CutPrefix(name, prefix+"_")
	if !ok || rest == "" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(rest, "__", "."))
}
