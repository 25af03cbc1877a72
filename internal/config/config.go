package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/aryankumar/bandmean/internal/engine"
	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/aryankumar/bandmean/internal/stats"
	"github.com/aryankumar/bandmean/internal/util"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".bandmean"
	envPrefix         = "BANDMEAN"
)

// OutputFormats are the accepted report formats
var OutputFormats = []string{"text", "table", "json", "yaml"}

// Manager resolves configuration from flags, environment and file
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager. command-line flags are
// expected to be bound to v already; a nil v gets a fresh instance.
func NewManager(configPath string, v *viper.Viper) *Manager {
	if v == nil {
		v = viper.New()
	}
	return &Manager{
		configPath: configPath,
		viper:      v,
		config:     &Config{},
	}
}

// Load reads the optional config file, applies defaults and validates
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.viper.AutomaticEnv()

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	m.config = &Config{}
	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	m.normalize()

	if err := m.config.Validate(); err != nil {
		return nil, err
	}
	return m.config, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// ConfigFileUsed returns the config file that was read, if any
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// setDefaults registers every key so environment variables apply without flags
func (m *Manager) setDefaults() {
	m.viper.SetDefault("workers", runtime.NumCPU())
	m.viper.SetDefault("strategy", engine.DefaultStrategy)
	m.viper.SetDefault("sentinel", 0.0)
	m.viper.SetDefault("extensions", raster.DefaultExtensions)
	m.viper.SetDefault("band-parallel", 1)
	m.viper.SetDefault("output", "text")
	m.viper.SetDefault("no-sentinel", false)
	m.viper.SetDefault("no-headers", false)
	m.viper.SetDefault("means", false)
	m.viper.SetDefault("timeout", time.Duration(0))
	m.viper.SetDefault("verbose", false)
	m.viper.SetDefault("no-color", false)
}

// normalize fills values a config file may have zeroed
func (m *Manager) normalize() {
	if m.config.Workers == 0 {
		m.config.Workers = runtime.NumCPU()
	}
	if m.config.BandParallel == 0 {
		m.config.BandParallel = 1
	}
	if m.config.Output == "" {
		m.config.Output = "text"
	}
	if m.config.Strategy == "" {
		m.config.Strategy = engine.DefaultStrategy
	}
	if len(m.config.Extensions) == 0 {
		m.config.Extensions = raster.DefaultExtensions
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	errs := &util.MultiError{}

	if c.Workers < 1 {
		errs.Add(util.NewValidationError("workers", c.Workers, "must be at least 1"))
	}
	if c.BandParallel < 1 {
		errs.Add(util.NewValidationError("band-parallel", c.BandParallel, "must be at least 1"))
	}
	if _, err := engine.Lookup(c.Strategy); err != nil {
		errs.Add(util.NewValidationError("strategy", c.Strategy,
			fmt.Sprintf("must be one of %s", strings.Join(engine.Strategies(), ", "))))
	}
	if !contains(OutputFormats, c.Output) {
		errs.Add(util.NewValidationError("output", c.Output,
			fmt.Sprintf("must be one of %s", strings.Join(OutputFormats, ", "))))
	}
	if c.Timeout < 0 {
		errs.Add(util.NewValidationError("timeout", c.Timeout, "must not be negative"))
	}

	return errs.ErrorOrNil()
}

// Validity returns the sample predicate described by the configuration
func (c *Config) Validity() stats.Validity {
	if c.NoSentinel {
		return stats.AllValid()
	}
	return stats.NotEqual(c.Sentinel)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
