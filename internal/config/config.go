package config

import (
	"errors"
	"fmt"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	toml "github.com/pelletier/go-toml/v2"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Excel refuses sheet names longer than this.
const maxSheetNameLength = 31

const (
	defaultConfigPath     = "~/.config/tally/config.toml"
	defaultOutputDir      = "~/tally"
	defaultThreshold      = 60
	defaultContextRadius  = 2
	defaultLabelMaxLength = 30
	defaultHttpBind       = "127.0.0.1:8081"
	defaultEsAddress      = "http://localhost:9200"
	defaultEsIndex        = "tally_log_index"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	OutputDir      string
	Threshold      int
	ContextRadius  int
	LabelMaxLength int
	KeywordScope   sessionModel.KeywordScope
	Keywords       []string
	HttpBind       string
	OtlpBind       string
	Elasticsearch  ElasticsearchConfig
	Devices        []sessionModel.DeviceRequest
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Index     string
}

type rawConfig struct {
	OutputDir      string   `toml:"output_dir"`
	Threshold      *int     `toml:"threshold"`
	ContextRadius  *int     `toml:"context_radius"`
	LabelMaxLength *int     `toml:"label_max_length"`
	KeywordScope   string   `toml:"keyword_scope"`
	Keywords       []string `toml:"keywords"`
	HttpBind       string   `toml:"http_bind"`
	OtlpBind       string   `toml:"otlp_bind"`
	Elasticsearch  struct {
		Enabled   bool     `toml:"enabled"`
		Addresses []string `toml:"addresses"`
		Index     string   `toml:"index"`
	} `toml:"elasticsearch"`
	Devices []struct {
		Id         string `toml:"id"`
		Port       string `toml:"port"`
		BaudRate   int    `toml:"baud_rate"`
		OutputPath string `toml:"output_path"`
		Command    string `toml:"command"`
	} `toml:"devices"`
}

// Default is the configuration used when no file exists.
func Default() Config {
	return Config{
		OutputDir:      mustExpand(defaultOutputDir),
		Threshold:      defaultThreshold,
		ContextRadius:  defaultContextRadius,
		LabelMaxLength: defaultLabelMaxLength,
		KeywordScope:   sessionModel.GlobalScope,
		HttpBind:       defaultHttpBind,
		Elasticsearch: ElasticsearchConfig{
			Addresses: []string{defaultEsAddress},
			Index:     defaultEsIndex,
		},
	}
}

// Load locates and parses the tally config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes)
}

// Parse decodes TOML content on top of the defaults and validates the result.
func Parse(content []byte) (Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if dir := strings.TrimSpace(raw.OutputDir); dir != "" {
		cfg.OutputDir = mustExpand(dir)
	}
	if raw.Threshold != nil {
		cfg.Threshold = *raw.Threshold
	}
	if raw.ContextRadius != nil {
		cfg.ContextRadius = *raw.ContextRadius
	}
	if raw.LabelMaxLength != nil {
		cfg.LabelMaxLength = *raw.LabelMaxLength
	}
	if scope := strings.TrimSpace(raw.KeywordScope); scope != "" {
		cfg.KeywordScope = sessionModel.KeywordScope(scope)
	}
	cfg.Keywords = raw.Keywords
	if bind := strings.TrimSpace(raw.HttpBind); bind != "" {
		cfg.HttpBind = bind
	}
	cfg.OtlpBind = strings.TrimSpace(raw.OtlpBind)

	cfg.Elasticsearch.Enabled = raw.Elasticsearch.Enabled
	if len(raw.Elasticsearch.Addresses) > 0 {
		cfg.Elasticsearch.Addresses = raw.Elasticsearch.Addresses
	}
	if index := strings.TrimSpace(raw.Elasticsearch.Index); index != "" {
		cfg.Elasticsearch.Index = index
	}

	for _, device := range raw.Devices {
		outputPath := strings.TrimSpace(device.OutputPath)
		if outputPath != "" {
			outputPath = mustExpand(outputPath)
		}
		cfg.Devices = append(cfg.Devices, sessionModel.DeviceRequest{
			Id:         strings.TrimSpace(device.Id),
			Port:       strings.TrimSpace(device.Port),
			BaudRate:   device.BaudRate,
			OutputPath: outputPath,
			Command:    device.Command,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive, got %d", ErrInvalidConfig, c.Threshold)
	}
	if c.ContextRadius < 0 {
		return fmt.Errorf("%w: context_radius must not be negative, got %d", ErrInvalidConfig, c.ContextRadius)
	}
	if c.LabelMaxLength < 1 || c.LabelMaxLength > maxSheetNameLength {
		return fmt.Errorf(
			"%w: label_max_length must be between 1 and %d, got %d",
			ErrInvalidConfig, maxSheetNameLength, c.LabelMaxLength,
		)
	}
	switch c.KeywordScope {
	case sessionModel.GlobalScope, sessionModel.PerSourceScope:
	default:
		return fmt.Errorf("%w: unknown keyword_scope %q", ErrInvalidConfig, c.KeywordScope)
	}
	for _, device := range c.Devices {
		if device.Port == "" {
			return fmt.Errorf("%w: device %q has no port", ErrInvalidConfig, device.Id)
		}
		if device.BaudRate <= 0 {
			return fmt.Errorf("%w: device %q has baud_rate %d", ErrInvalidConfig, device.Id, device.BaudRate)
		}
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
