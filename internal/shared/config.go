package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

//go:embed default.toml
var defaultConf []byte

// Config represents a conversion run's configuration loaded from a TOML or YAML document.
//
// A Config is read-only once a run starts and is shared by every worker.
type Config struct {
	DecodeCommand        []string      `toml:"decode_command" yaml:"decode_command"`
	EncodeCommand        []string      `toml:"encode_command" yaml:"encode_command"`
	SourceExtension      string        `toml:"source_extension" yaml:"source_extension"`
	DestinationExtension string        `toml:"destination_extension" yaml:"destination_extension"`
	RemoveAfter          bool          `toml:"remove_after" yaml:"remove_after"`
	Overwrite            bool          `toml:"overwrite" yaml:"overwrite"`
	Workers              int           `toml:"workers" yaml:"workers"`
	LogLevel             string        `toml:"log_level" yaml:"log_level"`
	History              HistoryConfig `toml:"history" yaml:"history"`
}

// HistoryConfig contains run history database settings.
type HistoryConfig struct {
	Path         string `toml:"path" yaml:"path"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns" yaml:"max_idle_conns"`
}

// baseConfig holds the values a document may omit. Command templates are deliberately absent:
// a document must always name its own decoder and encoder.
func baseConfig() Config {
	return Config{
		SourceExtension:      ".flac",
		DestinationExtension: ".mp3",
		LogLevel:             "info",
	}
}

// LoadConfig reads, parses and validates a configuration document from the specified path.
//
// Files ending in .yaml or .yml are parsed as YAML; everything else is parsed as TOML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	var config *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		config, err = ParseYAML(data)
	default:
		config, err = ParseTOML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseTOML decodes a TOML document. Unknown keys are rejected so that typos surface before any file is touched.
func ParseTOML(data []byte) (*Config, error) {
	config := baseConfig()
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return &config, nil
}

// ParseYAML decodes a YAML document with the same rules as [ParseTOML].
func ParseYAML(data []byte) (*Config, error) {
	config := baseConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// DefaultConfig returns the built-in configuration (flac | lame) loaded from the embedded default document.
func DefaultConfig() *Config {
	config, err := ParseTOML(defaultConf)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return config
}

// Validate reports the first problem that would make a run meaningless.
func (c *Config) Validate() error {
	if len(c.DecodeCommand) == 0 || c.DecodeCommand[0] == "" {
		return fmt.Errorf("%w: decode_command needs at least a program name", ErrInvalidConfig)
	}
	if len(c.EncodeCommand) == 0 || c.EncodeCommand[0] == "" {
		return fmt.Errorf("%w: encode_command needs at least a program name", ErrInvalidConfig)
	}

	for name, ext := range map[string]string{
		"source_extension":      c.SourceExtension,
		"destination_extension": c.DestinationExtension,
	} {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsRune(ext, filepath.Separator) {
			return fmt.Errorf("%w: %s must look like .ext, got %q", ErrInvalidConfig, name, ext)
		}
	}
	if c.SourceExtension == c.DestinationExtension {
		return fmt.Errorf("%w: source and destination extensions are both %q", ErrInvalidConfig, c.SourceExtension)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q: %v", ErrInvalidConfig, c.LogLevel, err)
	}
	return nil
}

// CreateConfigFile writes the embedded default configuration to path. An existing file is never replaced.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, defaultConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
