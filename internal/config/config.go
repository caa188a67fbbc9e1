package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes environment overrides, e.g. OCRDIFF_SERVER_PORT.
const EnvPrefix = "OCRDIFF"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	setDefaults(cm.v, DefaultConfig())

	// Environment variables with OCRDIFF_ prefix, nested keys joined by "_"
	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.ocrdiff")
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf key so that partial config files and
// environment overrides merge with the defaults key by key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.public_url", d.Server.PublicURL)

	v.SetDefault("ocr.endpoint", d.OCR.Endpoint)
	v.SetDefault("ocr.timeout_seconds", d.OCR.TimeoutSeconds)
	v.SetDefault("ocr.max_retries", d.OCR.MaxRetries)
	v.SetDefault("ocr.retry_delay_seconds", d.OCR.RetryDelaySeconds)
	v.SetDefault("ocr.requests_per_minute", d.OCR.RequestsPerMinute)
	v.SetDefault("ocr.client_ip", d.OCR.ClientIP)
	v.SetDefault("ocr.location", d.OCR.Location)
	v.SetDefault("ocr.user_agent", d.OCR.UserAgent)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.mirror", d.Store.Mirror)
	v.SetDefault("store.github.api_url", d.Store.GitHub.APIURL)
	v.SetDefault("store.github.owner", d.Store.GitHub.Owner)
	v.SetDefault("store.github.repo", d.Store.GitHub.Repo)
	v.SetDefault("store.github.path", d.Store.GitHub.Path)
	v.SetDefault("store.github.branch", d.Store.GitHub.Branch)
	v.SetDefault("store.github.token", d.Store.GitHub.Token)
	v.SetDefault("store.drive.file_id", d.Store.Drive.FileID)
	v.SetDefault("store.drive.credentials_file", d.Store.Drive.CredentialsFile)
	v.SetDefault("store.drive.api_key", d.Store.Drive.APIKey)

	v.SetDefault("compare.separator", d.Compare.Separator)
	v.SetDefault("compare.empty_containers", d.Compare.EmptyContainers)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// GitHubToken returns the GitHub token with env references resolved.
func (c *Config) GitHubToken() string {
	return ResolveEnvVars(c.Store.GitHub.Token)
}

// DriveAPIKey returns the Drive API key with env references resolved.
func (c *Config) DriveAPIKey() string {
	return ResolveEnvVars(c.Store.Drive.APIKey)
}

// YAML renders the config in config file form.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := DefaultConfig().YAML()
	if err != nil {
		return err
	}

	header := []byte(`# ocrdiff configuration
# Secrets use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export GITHUB_TOKEN=xxx GOOGLE_API_KEY=xxx
# Any key can be overridden with OCRDIFF_<SECTION>_<KEY>, e.g. OCRDIFF_SERVER_PORT=9090

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
