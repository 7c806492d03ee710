package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"tempbot-keeper/internal/env"

	"github.com/spf13/viper"
)

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path ("console" writes to stdout)
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for metrics, empty disables push
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
}

/**
 * Tunnel process configuration
 * @property {string} process_name - Process name used for pidfile and fallback matching
 * @property {string} command - Command template for starting the tunnel
 * @property {[]string} args - Argument templates for the tunnel command
 * @property {int} local_port - Local port exposed through the tunnel
 * @property {string} api_url - Tunnel control-plane status endpoint
 * @property {string} log_path - File receiving the tunnel's combined output
 */
type TunnelConfig struct {
	ProcessName string   `mapstructure:"process_name"`
	Command     string   `mapstructure:"command"`
	Args        []string `mapstructure:"args"`
	LocalPort   int      `mapstructure:"local_port"`
	ApiUrl      string   `mapstructure:"api_url"`
	LogPath     string   `mapstructure:"log_path"`
}

/**
 * Main application (bot) configuration
 * @property {string} process_name - Process name used for cleanup matching
 * @property {string} command - Command template for the bot process
 * @property {[]string} args - Argument templates for the bot process
 * @property {string} venv_dir - Virtualenv directory, relative to the project dir
 */
type BotConfig struct {
	ProcessName string   `mapstructure:"process_name"`
	Command     string   `mapstructure:"command"`
	Args        []string `mapstructure:"args"`
	VenvDir     string   `mapstructure:"venv_dir"`
}

/**
 * Configuration store (.env) settings
 * @property {string} file - Env file path, relative paths resolve against the project dir
 * @property {string} key - Key whose line is rewritten with the discovered URL
 */
type EnvFileConfig struct {
	File string `mapstructure:"file"`
	Key  string `mapstructure:"key"`
}

/**
 * Public URL discovery settings
 * @property {duration} timeout - Overall budget for the discovery poll
 * @property {duration} initial_interval - First backoff interval
 * @property {duration} max_interval - Backoff interval cap
 */
type DiscoveryConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

/**
 * Launch sequence settings
 * @property {duration} cleanup_delay - Delay after cleanup so the OS can release ports
 */
type LaunchConfig struct {
	CleanupDelay time.Duration `mapstructure:"cleanup_delay"`
}

var ErrKeyNotFound = errors.New("key not found in env file")

type AppConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tunnel    TunnelConfig    `mapstructure:"tunnel"`
	Bot       BotConfig       `mapstructure:"bot"`
	Env       EnvFileConfig   `mapstructure:"env"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Launch    LaunchConfig    `mapstructure:"launch"`
}

/**
 * Load application configuration from YAML file
 * @description
 * - Searches the working directory and the keeper home directory
 * - A missing config file is not an error, defaults apply
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(env.TempbotDir)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Tunnel.ProcessName == "" {
		cfg.Tunnel.ProcessName = "ngrok"
	}
	if cfg.Tunnel.Command == "" {
		cfg.Tunnel.Command = "{{.ProcessName}}"
	}
	if len(cfg.Tunnel.Args) == 0 {
		cfg.Tunnel.Args = []string{"http", "{{.LocalPort}}"}
	}
	if cfg.Tunnel.LocalPort == 0 {
		cfg.Tunnel.LocalPort = 5001
	}
	if cfg.Tunnel.ApiUrl == "" {
		cfg.Tunnel.ApiUrl = "http://localhost:4040/api/tunnels"
	}
	if cfg.Tunnel.LogPath == "" {
		cfg.Tunnel.LogPath = filepath.Join(os.TempDir(), "tempbot-ngrok.log")
	}
	if cfg.Bot.ProcessName == "" {
		cfg.Bot.ProcessName = "python"
	}
	if cfg.Bot.Command == "" {
		cfg.Bot.Command = "{{.Python}}"
	}
	if len(cfg.Bot.Args) == 0 {
		cfg.Bot.Args = []string{"app.py"}
	}
	if cfg.Bot.VenvDir == "" {
		cfg.Bot.VenvDir = "venv"
	}
	if cfg.Env.File == "" {
		cfg.Env.File = ".env"
	}
	if cfg.Env.Key == "" {
		cfg.Env.Key = "NGROK_URL"
	}
	if cfg.Discovery.Timeout == 0 {
		cfg.Discovery.Timeout = 30 * time.Second
	}
	if cfg.Discovery.InitialInterval == 0 {
		cfg.Discovery.InitialInterval = 250 * time.Millisecond
	}
	if cfg.Discovery.MaxInterval == 0 {
		cfg.Discovery.MaxInterval = 2 * time.Second
	}
	if cfg.Launch.CleanupDelay == 0 {
		cfg.Launch.CleanupDelay = time.Second
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
