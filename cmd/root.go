package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/secrets"
)

const (
	app = "intro-matcher"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database" validate:"required"`
	Matching *MatchingConfig `mapstructure:"matching" validate:"required"`
	Explain  *ExplainConfig  `mapstructure:"explain" validate:"required"`
	Serve    *ServeConfig    `mapstructure:"serve" validate:"required"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	URLFile  string `mapstructure:"url-file"`
	MaxConns int32  `mapstructure:"max-conns" validate:"gte=0,lte=100"`
}

type MatchingConfig struct {
	MaxResults int `mapstructure:"max-results" validate:"gte=0,lte=100"`
	Workers    int `mapstructure:"workers" validate:"gte=0,lte=64"`
}

type ExplainConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Provider      string        `mapstructure:"provider" validate:"oneof=gemini openai"`
	MaxCandidates int           `mapstructure:"max-candidates" validate:"gte=0,lte=20"`
	MinStars      int           `mapstructure:"min-stars" validate:"gte=0,lte=3"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Tone          string        `mapstructure:"tone"`
	Instructions  string        `mapstructure:"instructions"`
	Gemini        *GeminiConfig `mapstructure:"gemini" validate:"required"`
	OpenAI        *OpenAIConfig `mapstructure:"openai" validate:"required"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0,lte=10"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type ServeConfig struct {
	ListenAddr string        `mapstructure:"listen-addr" validate:"required"`
	RunTimeout time.Duration `mapstructure:"run-timeout" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "intro-matcher ranks contacts worth introducing after a conversation",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnv("database.url", "DATABASE_URL")
	bindEnv("explain.gemini.api-key-file", "GEMINI_API_KEY_FILE")
	bindEnv("explain.openai.api-key-file", "OPENAI_API_KEY_FILE")

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is intro-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max-conns", 10)
	v.SetDefault("matching.max-results", 20)
	v.SetDefault("matching.workers", 4)
	v.SetDefault("explain.enabled", false)
	v.SetDefault("explain.provider", "gemini")
	v.SetDefault("explain.max-candidates", 5)
	v.SetDefault("explain.min-stars", 2)
	v.SetDefault("explain.timeout", "30s")
	v.SetDefault("explain.gemini.model", "gemini-2.5-flash")
	v.SetDefault("explain.gemini.max-retries", 3)
	v.SetDefault("explain.gemini.max-log-length", 2000)
	v.SetDefault("explain.openai.model", "gpt-4o-mini")
	v.SetDefault("serve.listen-addr", ":8080")
	v.SetDefault("serve.run-timeout", "2m")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config file is fine, everything has defaults or env bindings.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.Explain.Provider = strings.ToLower(strings.TrimSpace(config.Explain.Provider))

	if err := validate.Struct(&config); err != nil {
		return nil, validationError(err)
	}
	return &config, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: rule '%s' expected '%s', got '%v'", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// databaseURL resolves the connection string: url-file first, then DATABASE_URL or the url key.
func databaseURL(cfg *DatabaseConfig) (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "database url",
		File:  cfg.URLFile,
		Value: cfg.URL,
	})
}
