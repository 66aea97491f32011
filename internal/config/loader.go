package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory for the user config, relative to $HOME.
	GlobalConfigDir = ".config/keyprov"
	// GlobalConfigFile is the config file name inside GlobalConfigDir.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override (KEYPROV_PORT, ...).
	EnvPrefix = "KEYPROV"
)

// Find locates the config file:
// 1. Explicit path (from --config flag)
// 2. ~/.config/keyprov/config.yaml
//
// Returns an empty path if no file exists; that is not an error.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// Load reads the config file at path (may be empty) and layers
// KEYPROV_* environment variables and defaults underneath it.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check "+path+" exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// LoadOrDefault finds and loads the config, honouring an explicit path.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Marshal renders the config as YAML. The password is never included.
func Marshal(cfg *Config) ([]byte, error) {
	// yaml.v3 would write the duration as nanoseconds; keep it human readable.
	out := struct {
		Port          int    `yaml:"port"`
		PublicKey     string `yaml:"public_key"`
		HostKeyPolicy string `yaml:"host_key_policy"`
		KnownHosts    string `yaml:"known_hosts"`
		Timeout       string `yaml:"timeout"`
		KeyBits       int    `yaml:"key_bits"`
	}{
		Port:          cfg.Port,
		PublicKey:     cfg.PublicKey,
		HostKeyPolicy: cfg.HostKeyPolicy,
		KnownHosts:    cfg.KnownHosts,
		Timeout:       cfg.Timeout.String(),
		KeyBits:       cfg.KeyBits,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't render config",
			"")
	}
	return data, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("port", d.Port)
	v.SetDefault("public_key", d.PublicKey)
	v.SetDefault("host_key_policy", d.HostKeyPolicy)
	v.SetDefault("known_hosts", d.KnownHosts)
	v.SetDefault("timeout", d.Timeout.String())
	v.SetDefault("key_bits", d.KeyBits)
	v.SetDefault("password", "")
}

// parseConfig converts viper state into a Config and validates it.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
