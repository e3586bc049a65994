// Package config loads the watcher's YAML configuration file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sampleName is the template shipped next to the binary. A missing config
// file is seeded from it so a first run produces something editable.
const sampleName = "config_sample.yaml"

// StringList accepts either a single YAML string or a sequence of strings,
// so `target_group_name: 科技` and a list form both work.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Config is the file-backed configuration. Infrastructure endpoints
// (DATABASE_URL, REDIS_URL) stay in the environment and are read by main.
type Config struct {
	TargetGroupNames StringList `yaml:"target_group_name"`
	RetryMax         int        `yaml:"retry_max"`
	RetryInterval    int        `yaml:"retry_interval"` // seconds
	Workers          int        `yaml:"workers"`
	DataDirectory    string     `yaml:"data_directory"`
	Debug            bool       `yaml:"debug"`
}

func (c *Config) applyDefaults() {
	if c.RetryMax <= 0 {
		c.RetryMax = 10
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 5
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.DataDirectory == "" {
		c.DataDirectory = "data"
	}
}

// Load reads the config at path, seeding it from the sample file in the same
// directory when it does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		sample := filepath.Join(filepath.Dir(path), sampleName)
		slog.Info("config: file not found, copying sample",
			slog.String("path", path), slog.String("sample", sample))
		if err := copyFile(sample, path); err != nil {
			return nil, fmt.Errorf("config: seed from sample: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	if len(cfg.TargetGroupNames) == 0 {
		return nil, fmt.Errorf("config: %s: target_group_name is required", path)
	}
	return &cfg, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
