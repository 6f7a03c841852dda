package config

import (
	"os"
	"path/filepath"

	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

var (
	DefaultDir       = filepath.Join(os.Getenv("HOME"), ".zktx")
	DefaultParamsDir = filepath.Join(DefaultDir, "params")
)

type Config struct {
	// ParamsDir holds the Groth16 keys written by `params setup`.
	ParamsDir string `yaml:"paramsDir"`
	TreeDepth int    `yaml:"treeDepth"`
	LogLevel  string `yaml:"logLevel"`
	LogPretty bool   `yaml:"logPretty"`
}

func Default() *Config {
	return &Config{
		ParamsDir: DefaultParamsDir,
		TreeDepth: prover.DefaultTreeDepth,
		LogLevel:  zerolog.InfoLevel.String(),
	}
}

// Load reads the config at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.TreeDepth < 1 || c.TreeDepth > 32 {
		return errors.Errorf("validate config: treeDepth %d out of range [1, 32]", c.TreeDepth)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "validate config")
	}
	return nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "save config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "save config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "save config")
}

// CreateLogger builds the logger described by the config and installs it
// as the shared logger.
func (c *Config) CreateLogger() (zerolog.Logger, error) {
	logger, err := utils.NewLogger(os.Stderr, c.LogLevel, c.LogPretty)
	if err != nil {
		return logger, errors.Wrap(err, "create logger")
	}
	utils.SetLogger(logger)
	return logger, nil
}
