package config

import "time"

// Config is the resolved run configuration. Keys match the command-line
// flags, the config file and the BANDMEAN_* environment variables.
type Config struct {
	// Workers is the size of the worker group
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	// Strategy is the aggregation strategy name
	Strategy string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`

	// Sentinel is the no-data sample value
	Sentinel float64 `mapstructure:"sentinel" yaml:"sentinel" json:"sentinel"`

	// NoSentinel counts every sample except NaN
	NoSentinel bool `mapstructure:"no-sentinel" yaml:"no-sentinel" json:"noSentinel"`

	// Extensions are the file extensions scanned in the input directory
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`

	// BandParallel is the number of bands one worker reduces concurrently
	BandParallel int `mapstructure:"band-parallel" yaml:"band-parallel" json:"bandParallel"`

	// Output is the report format (text, table, json, yaml)
	Output string `mapstructure:"output" yaml:"output" json:"output"`

	// NoHeaders drops header rows from table output
	NoHeaders bool `mapstructure:"no-headers" yaml:"no-headers" json:"noHeaders"`

	// Means includes per-band means in the report
	Means bool `mapstructure:"means" yaml:"means" json:"means"`

	// Timeout bounds the whole run; zero means no limit
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	// Verbose enables debug logging
	Verbose bool `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// NoColor disables colored output
	NoColor bool `mapstructure:"no-color" yaml:"no-color" json:"noColor"`
}
