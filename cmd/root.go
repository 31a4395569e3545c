package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "shift-swap"
	envPrefix = "SHIFT_SWAP"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	AI       AIConfig       `mapstructure:"ai"`
	Server   ServerConfig   `mapstructure:"server"`
	Matching MatchingConfig `mapstructure:"matching"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory postgres"`
	// SnapshotFile keeps the memory store across restarts. Optional.
	SnapshotFile string `mapstructure:"snapshot-file"`
	DatabaseURL  string `mapstructure:"database-url" validate:"required_if=Driver postgres"`
}

type AIConfig struct {
	Provider     string  `mapstructure:"provider" validate:"oneof=none gemini workersai"`
	MaxLogLength int     `mapstructure:"max-log-length" validate:"gte=0"`
	RateLimit    float64 `mapstructure:"rate-limit" validate:"gte=0"`
	Burst        int     `mapstructure:"burst" validate:"gte=0"`

	Gemini    GeminiConfig    `mapstructure:"gemini"`
	WorkersAI WorkersAIConfig `mapstructure:"workersai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type WorkersAIConfig struct {
	AccountID string        `mapstructure:"account-id"`
	Token     string        `mapstructure:"token"`
	TokenFile string        `mapstructure:"token-file"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen" validate:"required"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"gt=0"`
}

type MatchingConfig struct {
	MaxDayDiff int `mapstructure:"max-day-diff" validate:"gte=0"`
}

var defaults = map[string]any{
	"store.driver":            "memory",
	"store.snapshot-file":     "",
	"store.database-url":      "",
	"ai.provider":             "none",
	"ai.max-log-length":       200,
	"ai.rate-limit":           0.0,
	"ai.burst":                1,
	"ai.gemini.api-key":       "",
	"ai.gemini.api-key-file":  "",
	"ai.gemini.model":         "",
	"ai.gemini.max-retries":   3,
	"ai.workersai.account-id": "",
	"ai.workersai.token":      "",
	"ai.workersai.token-file": "",
	"ai.workersai.model":      "",
	"ai.workersai.timeout":    "30s",
	"server.listen":           ":8080",
	"server.allowed-origins":  []string{"*"},
	"server.shutdown-timeout": "10s",
	"matching.max-day-diff":   3,
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "shift-swap matches workers who need a shift covered with workers who can cover it",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is shift-swap.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}
}

// getConfig reads the config file, when there is one, and validates the
// result. An explicitly given file must exist.
func getConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	config.Store.Driver = strings.ToLower(strings.TrimSpace(config.Store.Driver))

	if err := configValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
