package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "donation-matcher"
)

type Config struct {
	Server *ServerConfig `mapstructure:"server"`
	AI     *AIConfig     `mapstructure:"ai"`
	Match  *MatchConfig  `mapstructure:"match"`
	Cache  *CacheConfig  `mapstructure:"cache"`
	Events *EventsConfig `mapstructure:"events"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown-timeout"`
	MaxBodyBytes      int64         `mapstructure:"max-body-bytes"`
	Trace             bool          `mapstructure:"trace"`
}

type AIConfig struct {
	Provider     string         `mapstructure:"provider"`
	Timeout      time.Duration  `mapstructure:"timeout"`
	MaxLogLength int            `mapstructure:"max-log-length"`
	Mistral      *MistralConfig `mapstructure:"mistral"`
	Gemini       *GeminiConfig  `mapstructure:"gemini"`
}

type MistralConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type MatchConfig struct {
	VerifyRecipient bool   `mapstructure:"verify-recipient"`
	PromptFile      string `mapstructure:"prompt-file"`
}

type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisAddr string        `mapstructure:"redis-addr"`
	TTL       time.Duration `mapstructure:"ttl"`
	Prefix    string        `mapstructure:"prefix"`
}

type EventsConfig struct {
	NatsURL string `mapstructure:"nats-url"`
	Subject string `mapstructure:"subject"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "donation-matcher picks the best recipient for a food donation with the help of an LLM",
	}

	envBindings = map[string]string{
		"ai.mistral.api-key":      "MISTRAL_API_KEY",
		"ai.mistral.api-key-file": "MISTRAL_API_KEY_FILE",
		"ai.gemini.api-key":       "GEMINI_API_KEY",
		"ai.gemini.api-key-file":  "GEMINI_API_KEY_FILE",
		"server.addr":             "MATCHER_HTTP_ADDR",
		"cache.redis-addr":        "REDIS_ADDR",
		"events.nats-url":         "NATS_URL",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is donation-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read-header-timeout", 5*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.max-body-bytes", 1<<20)
	v.SetDefault("server.trace", false)

	v.SetDefault("ai.provider", "mistral")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.mistral.model", "mistral-small")
	v.SetDefault("ai.mistral.base-url", "https://api.mistral.ai/v1")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")

	v.SetDefault("match.verify-recipient", true)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.prefix", "match:result:")

	v.SetDefault("events.subject", "donation.matched")
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Mistral == nil {
		config.AI.Mistral = &MistralConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Match == nil {
		config.Match = &MatchConfig{}
	}
	if config.Cache == nil {
		config.Cache = &CacheConfig{}
	}
	if config.Events == nil {
		config.Events = &EventsConfig{}
	}

	return config, nil
}
