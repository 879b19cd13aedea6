package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/x31337/extsync/internal/branding"
	"github.com/x31337/extsync/internal/manifest"
	"github.com/x31337/extsync/internal/platform"
	"github.com/x31337/extsync/internal/registry"
	"github.com/x31337/extsync/internal/source"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys. Each is also a sync flag and an environment variable
// (EXTSYNC_<KEY> with dashes as underscores).
const (
	KeySource      = "source"
	KeyTarget      = "target"
	KeyRegistry    = "registry"
	KeyWorkers     = "workers"
	KeyPattern     = "pattern"
	KeyEngineRange = "engine-range"
	KeyPatchEngine = "patch-engine"
	KeyReportDir   = "report-dir"
	KeyLogLevel    = "log-level"
)

// Keys lists every supported configuration key.
var Keys = []string{
	KeySource,
	KeyTarget,
	KeyRegistry,
	KeyWorkers,
	KeyPattern,
	KeyEngineRange,
	KeyPatchEngine,
	KeyReportDir,
	KeyLogLevel,
}

// ErrUnknownKey is returned by Set for keys outside Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Dir returns the path to the config directory (~/.extsync/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.extsync/config.yaml).
func FilePath() string {
	if p := os.Getenv(branding.EnvVar("config")); p != "" {
		return p
	}
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the directory holding the config file.
func EnsureDir() error {
	dir := filepath.Dir(FilePath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// DefaultTarget returns the editor extensions directory under $HOME.
func DefaultTarget() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return branding.ExtensionsDir()
	}
	return filepath.Join(home, filepath.FromSlash(branding.ExtensionsDir()))
}

// Load initializes Viper to read from the config file and environment.
func Load() error {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is the normal first-run state.
		if _, statErr := os.Stat(FilePath()); errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault(KeySource, ".")
	viper.SetDefault(KeyTarget, DefaultTarget())
	viper.SetDefault(KeyRegistry, "")
	viper.SetDefault(KeyWorkers, runtime.NumCPU())
	viper.SetDefault(KeyPattern, source.DefaultPattern)
	viper.SetDefault(KeyEngineRange, manifest.DefaultEngineRange)
	viper.SetDefault(KeyPatchEngine, "")
	viper.SetDefault(KeyReportDir, "")
	viper.SetDefault(KeyLogLevel, "info")
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetInt returns an integer config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// RegistryPath returns the configured registry file, defaulting to
// extensions.json inside the target directory.
func RegistryPath() string {
	if p := Get(KeyRegistry); p != "" {
		return p
	}
	return filepath.Join(Get(KeyTarget), registry.FileName)
}

// IsKnown reports whether key is a supported configuration key.
func IsKnown(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Validate checks a value for key.
func Validate(key, value string) error {
	switch key {
	case KeyWorkers:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	case KeyEngineRange, KeyPatchEngine:
		if value == "" && key == KeyPatchEngine {
			return nil
		}
		return manifest.ValidateEngineRange(value)
	case KeyLogLevel:
		if _, err := log.ParseLevel(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Set validates and writes a config key-value pair to the config file.
// Only keys already in the file plus the new one are written; defaults and
// environment overrides stay out of it.
func Set(key, value string) error {
	if !IsKnown(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := Validate(key, value); err != nil {
		return err
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()
	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType(fileType)
	if _, err := os.Stat(configFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	file.Set(key, value)
	if err := file.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := platform.Chmod(configFile, 0o600); err != nil {
		return fmt.Errorf("securing config file: %w", err)
	}

	viper.Set(key, value)
	return nil
}

// All returns every key with its effective value, sorted by key.
func All() []Setting {
	out := make([]Setting, 0, len(Keys))
	for _, k := range Keys {
		out = append(out, Setting{Key: k, Value: Get(k)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Setting is one key and its effective value.
type Setting struct {
	Key   string
	Value string
}
