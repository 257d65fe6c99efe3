// Package config provides XML-based configuration management for the memorial client.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"MemorialClient"`

	// Local companion server
	Server ServerConfig `xml:"Server"`

	// External generation service
	Backend BackendConfig `xml:"Backend"`

	Upload UploadConfig `xml:"Upload"`

	Progress ProgressConfig `xml:"Progress"`

	Sessions SessionsConfig `xml:"Sessions"`

	Export ExportConfig `xml:"Export"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// BackendConfig describes the memorial generation endpoint
type BackendConfig struct {
	BaseURL               string `xml:"BaseURL"`
	GeneratePath          string `xml:"GeneratePath"`
	HealthPath            string `xml:"HealthPath"`
	RequestTimeoutSeconds int    `xml:"RequestTimeoutSeconds"`
}

// UploadConfig contains file intake settings
type UploadConfig struct {
	MaxFileSizeBytes int64  `xml:"MaxFileSizeBytes"`
	AllowedExtension string `xml:"AllowedExtension"`
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
}

// ProgressConfig controls the processing animation
type ProgressConfig struct {
	StepIntervalMs int `xml:"StepIntervalMs"`
}

// SessionsConfig controls browser session lifetime
type SessionsConfig struct {
	MaxSessions            int `xml:"MaxSessions"`
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
}

// ExportConfig contains download settings for the terminal client
type ExportConfig struct {
	Directory string `xml:"Directory"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	MessagesFile         string `xml:"MessagesFile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "127.0.0.1",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "60M",
		},
		Backend: BackendConfig{
			BaseURL:               "http://localhost:8000",
			GeneratePath:          "/api/v1/generate_memorial",
			HealthPath:            "/health",
			RequestTimeoutSeconds: 600,
		},
		Upload: UploadConfig{
			MaxFileSizeBytes: 50 * 1024 * 1024,
			AllowedExtension: ".pdf",
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
		},
		Progress: ProgressConfig{
			StepIntervalMs: 1000,
		},
		Sessions: SessionsConfig{
			MaxSessions:            20,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Export: ExportConfig{
			Directory: ".",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// .env is optional; values already in the environment win
	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Memorial Client Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Upload.DataDirectory = dataDir
		c.Upload.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if apiURL := os.Getenv("MEMORIAL_API_URL"); apiURL != "" {
		c.Backend.BaseURL = strings.TrimRight(apiURL, "/")
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Advanced.LogLevel = lvl
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Upload.DataDirectory) {
		c.Upload.DataDirectory = filepath.Join(configDir, c.Upload.DataDirectory)
	}
	if !filepath.IsAbs(c.Upload.UploadsDirectory) {
		c.Upload.UploadsDirectory = filepath.Join(configDir, c.Upload.UploadsDirectory)
	}
	if c.Advanced.MessagesFile != "" && !filepath.IsAbs(c.Advanced.MessagesFile) {
		c.Advanced.MessagesFile = filepath.Join(configDir, c.Advanced.MessagesFile)
	}
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Upload.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GenerateURL returns the full URL of the generation endpoint
func (c *AppConfig) GenerateURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + c.Backend.GeneratePath
}

// HealthURL returns the full URL of the service health endpoint
func (c *AppConfig) HealthURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + c.Backend.HealthPath
}

// RequestTimeout returns the per-request timeout for the generation call
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// StepInterval returns the cadence of the progress animation
func (c *AppConfig) StepInterval() time.Duration {
	return time.Duration(c.Progress.StepIntervalMs) * time.Millisecond
}

// SessionTimeout returns how long an idle session is kept. Non-positive
// values fall back to the default.
func (c *AppConfig) SessionTimeout() time.Duration {
	return minutesOrDefault(c.Sessions.SessionTimeoutMinutes, DefaultConfig().Sessions.SessionTimeoutMinutes)
}

// CleanupInterval returns the period of the idle-session sweep. Non-positive
// values fall back to the default.
func (c *AppConfig) CleanupInterval() time.Duration {
	return minutesOrDefault(c.Sessions.CleanupIntervalMinutes, DefaultConfig().Sessions.CleanupIntervalMinutes)
}

func minutesOrDefault(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Upload.DataDirectory,
		c.Upload.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
