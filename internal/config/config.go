package config

import (
	"fmt"
	"path/filepath"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/vyc/internal/compiler"
)

// Default configuration values
const (
	DefaultOutDir   = "artifacts"
	DefaultCacheDir = ".vyc-cache"
	DefaultVerbose  = false
)

// SettingsConfig is the on-disk shape of a profile's settings.
type SettingsConfig struct {
	// Target EVM version passed as --evm-version
	EVMVersion string `mapstructure:"evm_version"`

	// Optimizer control: bool or named mode string, dialect depends on
	// the compiler version
	Optimize any `mapstructure:"optimize"`
}

// CompilerConfig is one configured compiler installation.
type CompilerConfig struct {
	// Semantic version of the installation (required)
	Version string `mapstructure:"version"`

	// Path to the compiler binary; empty means "vyper" from PATH
	Path string `mapstructure:"path"`

	// Settings applied to every file compiled with this installation
	Settings SettingsConfig `mapstructure:"settings"`
}

// Holds the configuration options for vyc
type Config struct {
	// Configured compiler installations
	Compilers []CompilerConfig

	// Tie-break version for files without a version pragma when more
	// than one compiler is configured. Empty means highest wins.
	DefaultVersion string

	// Directory for the build cache
	CacheDir string

	// Directory for written artifacts
	OutDir string

	// Disable the build cache
	NoCache bool

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		DefaultVersion: viper.GetString("default_version"),
		CacheDir:       viper.GetString("cache_dir"),
		OutDir:         viper.GetString("out"),
		NoCache:        viper.GetBool("no-cache"),
		Verbose:        viper.GetBool("verbose"),
	}

	if err := viper.UnmarshalKey("compilers", &cfg.Compilers); err != nil {
		return nil, fmt.Errorf("invalid compilers configuration: %w", err)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}

	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Compilers) == 0 {
		return fmt.Errorf("no compilers configured")
	}

	seen := make(map[string]bool, len(c.Compilers))
	for i, cc := range c.Compilers {
		if cc.Version == "" {
			return fmt.Errorf("compiler %d: version is required", i)
		}

		v, err := goversion.NewVersion(cc.Version)
		if err != nil {
			return fmt.Errorf("compiler %d: invalid version %q: %w", i, cc.Version, err)
		}

		if seen[v.String()] {
			return fmt.Errorf("compiler version %s configured more than once", cc.Version)
		}

		seen[v.String()] = true

		if cc.Path != "" {
			abs, err := filepath.Abs(cc.Path)
			if err != nil {
				return fmt.Errorf("compiler %d: invalid path: %w", i, err)
			}

			c.Compilers[i].Path = abs
		}

		switch cc.Settings.Optimize.(type) {
		case nil, bool, string:
		default:
			return fmt.Errorf("compiler %d: optimize must be a boolean or a mode string", i)
		}
	}

	if c.DefaultVersion != "" {
		if _, err := goversion.NewVersion(c.DefaultVersion); err != nil {
			return fmt.Errorf("invalid default_version %q: %w", c.DefaultVersion, err)
		}
	}

	abs, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return fmt.Errorf("invalid cache directory: %v", err)
	}

	c.CacheDir = abs

	abs, err = filepath.Abs(c.OutDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %v", err)
	}

	c.OutDir = abs
	return nil
}

// Profiles converts the configured compilers into resolved profiles.
func (c *Config) Profiles() ([]*compiler.Profile, error) {
	profiles := make([]*compiler.Profile, 0, len(c.Compilers))

	for _, cc := range c.Compilers {
		v, err := goversion.NewVersion(cc.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid compiler version %q: %w", cc.Version, err)
		}

		profiles = append(profiles, &compiler.Profile{
			Version: v,
			Path:    cc.Path,
			Settings: compiler.Settings{
				EVMVersion: cc.Settings.EVMVersion,
				Optimize:   cc.Settings.Optimize,
			},
		})
	}

	return profiles, nil
}

// Default returns the parsed default_version, nil if unset.
func (c *Config) Default() *goversion.Version {
	if c.DefaultVersion == "" {
		return nil
	}

	v, err := goversion.NewVersion(c.DefaultVersion)
	if err != nil {
		return nil
	}

	return v
}
