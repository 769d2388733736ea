package swad

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes YAML from r on top of DefaultConfig. Unknown keys are
// rejected. An empty document yields the defaults.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := loadAssertionKey(&cfg.Assertion); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadAssertionKey(a *AssertionConfig) error {
	if !a.Enabled || a.KeyFile == "" {
		return nil
	}
	raw, err := os.ReadFile(a.KeyFile)
	if err != nil {
		return fmt.Errorf("%w: assertion key_file: %v", ErrInvalidConfig, err)
	}
	a.PrivateKey = bytes.TrimSpace(raw)
	return nil
}
