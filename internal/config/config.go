package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stickergen/stickergen/pkg/pipeline"
)

// Config holds the application configuration
type Config struct {
	PhotosDir   string   `json:"photos_dir"`
	MappingFile string   `json:"mapping_file"`
	ExtPriority []string `json:"ext_priority"`
	ZipOutput   bool     `json:"zip_output"`

	Pipeline pipeline.Config `json:"pipeline"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		PhotosDir:   "photos",
		MappingFile: "mapping.csv",
		ExtPriority: []string{"jpg", "jpeg", "png", "webp"},
		ZipOutput:   true,
		Pipeline:    pipeline.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PhotosDir == "" {
		return fmt.Errorf("photos_dir cannot be empty")
	}

	if c.MappingFile == "" {
		return fmt.Errorf("mapping_file cannot be empty")
	}

	if len(c.ExtPriority) == 0 {
		return fmt.Errorf("ext_priority cannot be empty")
	}

	if err := c.Pipeline.Export.Validate(); err != nil {
		return fmt.Errorf("pipeline.export: %w", err)
	}

	if c.Pipeline.Compose.BorderWidth < 0 {
		return fmt.Errorf("pipeline.compose.border_width must be non-negative")
	}

	if c.Pipeline.Text.FontSize < 1 {
		return fmt.Errorf("pipeline.text.font_size must be positive")
	}

	if c.Pipeline.Text.MinFontSize > c.Pipeline.Text.FontSize {
		return fmt.Errorf("pipeline.text.min_font_size cannot exceed font_size")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "stickergen", "config.json")
}
