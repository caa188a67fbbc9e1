package config

import (
	"fmt"
	"time"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendGitHub = "github"
	BackendDrive  = "drive"
)

// Config holds ocrdiff configuration.
// Stored at: ~/.ocrdiff/config.yaml or ./config.yaml
type Config struct {
	Server  ServerCfg  `mapstructure:"server" yaml:"server"`
	OCR     OCRCfg     `mapstructure:"ocr" yaml:"ocr"`
	Store   StoreCfg   `mapstructure:"store" yaml:"store"`
	Compare CompareCfg `mapstructure:"compare" yaml:"compare"`
	History HistoryCfg `mapstructure:"history" yaml:"history"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
	// PublicURL is the base of the shareable per-parser links.
	PublicURL string `mapstructure:"public_url" yaml:"public_url"`
}

// OCRCfg configures the remote OCR API.
type OCRCfg struct {
	Endpoint          string `mapstructure:"endpoint" yaml:"endpoint"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int    `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	// RequestsPerMinute paces submissions across all runs; 0 disables.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	// Client identity sent with every submission.
	ClientIP  string `mapstructure:"client_ip" yaml:"client_ip"`
	Location  string `mapstructure:"location" yaml:"location"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Timeout returns the per-attempt HTTP timeout.
func (c OCRCfg) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed delay between attempts.
func (c OCRCfg) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// StoreCfg selects where parsers.json lives.
type StoreCfg struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "file", "github", "drive"
	// Mirror keeps a local copy of remote documents in the home directory.
	Mirror bool      `mapstructure:"mirror" yaml:"mirror"`
	GitHub GitHubCfg `mapstructure:"github" yaml:"github"`
	Drive  DriveCfg  `mapstructure:"drive" yaml:"drive"`
}

// GitHubCfg addresses parsers.json through the GitHub contents API.
type GitHubCfg struct {
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	Owner  string `mapstructure:"owner" yaml:"owner"`
	Repo   string `mapstructure:"repo" yaml:"repo"`
	Path   string `mapstructure:"path" yaml:"path"`
	Branch string `mapstructure:"branch" yaml:"branch"`
	Token  string `mapstructure:"token" yaml:"token"` // supports ${ENV_VAR} syntax
}

// DriveCfg addresses parsers.json as a Google Drive file.
type DriveCfg struct {
	FileID          string `mapstructure:"file_id" yaml:"file_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	APIKey          string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
}

// CompareCfg tunes the flattener.
type CompareCfg struct {
	Separator       string `mapstructure:"separator" yaml:"separator"`
	EmptyContainers bool   `mapstructure:"empty_containers" yaml:"empty_containers"`
}

// HistoryCfg configures the run history database.
type HistoryCfg struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // empty uses the home directory
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host:      "127.0.0.1",
			Port:      "8080",
			PublicURL: "http://127.0.0.1:8080",
		},
		OCR: OCRCfg{
			Endpoint:          "https://prod-ml.fracto.tech/upload-file-smart-ocr",
			TimeoutSeconds:    120,
			MaxRetries:        3,
			RetryDelaySeconds: 5,
			ClientIP:          "127.0.0.1",
			Location:          "delhi",
			UserAgent:         "Dummy-device-testing11",
		},
		Store: StoreCfg{
			Backend: BackendFile,
			GitHub: GitHubCfg{
				APIURL: "https://api.github.com",
				Path:   "parsers.json",
				Branch: "main",
				Token:  "${GITHUB_TOKEN}",
			},
			Drive: DriveCfg{
				APIKey: "${GOOGLE_API_KEY}",
			},
		},
		Compare: CompareCfg{
			Separator: ".",
		},
		History: HistoryCfg{
			Enabled: true,
		},
	}
}

// Validate checks the fields the services depend on.
func (c *Config) Validate() error {
	if c.OCR.Endpoint == "" {
		return fmt.Errorf("ocr.endpoint is required")
	}
	if c.OCR.TimeoutSeconds <= 0 {
		return fmt.Errorf("ocr.timeout_seconds must be positive, got %d", c.OCR.TimeoutSeconds)
	}
	if c.OCR.MaxRetries < 1 {
		return fmt.Errorf("ocr.max_retries must be at least 1, got %d", c.OCR.MaxRetries)
	}
	if c.OCR.RequestsPerMinute < 0 {
		return fmt.Errorf("ocr.requests_per_minute must not be negative, got %d", c.OCR.RequestsPerMinute)
	}
	if c.Compare.Separator == "" {
		return fmt.Errorf("compare.separator must not be empty")
	}
	switch c.Store.Backend {
	case BackendFile:
	case BackendGitHub:
		if c.Store.GitHub.Owner == "" || c.Store.GitHub.Repo == "" {
			return fmt.Errorf("store.github.owner and store.github.repo are required for the github backend")
		}
	case BackendDrive:
		if c.Store.Drive.FileID == "" {
			return fmt.Errorf("store.drive.file_id is required for the drive backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
