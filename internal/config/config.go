package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Callback  CallbackConfig  `mapstructure:"callback"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCEnabled     bool          `mapstructure:"grpc_enabled"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig configures the optional Redis used for rate limiting.
// Session state never goes to Redis.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// AuthConfig holds the shared key the chat platform sends in the API key header.
// An empty APIKey accepts any non-empty header value.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
	Header string `mapstructure:"header"`
}

// LLMConfig configures the OpenAI-compatible endpoint used for persona replies
// and for the yes/no scam oracle.
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	ReplyTimeout      time.Duration `mapstructure:"reply_timeout"`
	ReplyMaxTokens    int           `mapstructure:"reply_max_tokens"`
	ClassifierEnabled bool          `mapstructure:"classifier_enabled"`
	ClassifierTimeout time.Duration `mapstructure:"classifier_timeout"`
	// Hosts besides base_url that metadata.llmUrl may point at
	AllowedHosts      []string      `mapstructure:"allowed_hosts"`
}

// CallbackConfig configures the final report sent to the evaluation platform.
type CallbackConfig struct {
	URL            string        `mapstructure:"url"`
	MinTurns       int           `mapstructure:"min_turns"`
	MaxTurns       int           `mapstructure:"max_turns"`
	Retries        int           `mapstructure:"retries"`
	BackoffSeconds float64       `mapstructure:"backoff_sec"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
}

// Backoff returns the base delay between delivery attempts
func (c CallbackConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds * float64(time.Second))
}

// Validate checks cross-field constraints viper cannot express
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be > 0")
	}
	if c.Callback.MinTurns < 0 {
		return fmt.Errorf("callback.min_turns must be >= 0")
	}
	if c.Callback.MaxTurns < c.Callback.MinTurns {
		return fmt.Errorf("callback.max_turns (%d) must be >= callback.min_turns (%d)", c.Callback.MaxTurns, c.Callback.MinTurns)
	}
	if c.Callback.Retries <= 0 {
		return fmt.Errorf("callback.retries must be > 0")
	}
	if c.Callback.BackoffSeconds < 0 {
		return fmt.Errorf("callback.backoff_sec must be >= 0")
	}
	if c.Callback.Workers <= 0 {
		return fmt.Errorf("callback.workers must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "honeypot-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.grpc_enabled", true)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "honeypot:")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.header", "x-api-key")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("llm.model", "meta-llama/llama-3.1-8b-instruct")
	v.SetDefault("llm.reply_timeout", 30*time.Second)
	v.SetDefault("llm.reply_max_tokens", 200)
	v.SetDefault("llm.classifier_enabled", true)
	v.SetDefault("llm.classifier_timeout", 10*time.Second)
	v.SetDefault("llm.allowed_hosts", []string{})

	v.SetDefault("callback.url", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult")
	v.SetDefault("callback.min_turns", 6)
	v.SetDefault("callback.max_turns", 10)
	v.SetDefault("callback.retries", 3)
	v.SetDefault("callback.backoff_sec", 1.5)
	v.SetDefault("callback.timeout", 10*time.Second)
	v.SetDefault("callback.workers", 2)
	v.SetDefault("callback.queue_size", 256)
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/honeypot-lab")
	}

	v.SetEnvPrefix("HONEYPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The chat platform deployment sets these plain names; the prefixed form wins when both exist.
	v.BindEnv("app.environment", "HONEYPOT_APP_ENVIRONMENT", "APP_ENV")
	v.BindEnv("server.http_port", "HONEYPOT_SERVER_HTTP_PORT", "PORT")
	v.BindEnv("redis.enabled", "HONEYPOT_REDIS_ENABLED")
	v.BindEnv("redis.host", "HONEYPOT_REDIS_HOST")
	v.BindEnv("redis.port", "HONEYPOT_REDIS_PORT")
	v.BindEnv("redis.password", "HONEYPOT_REDIS_PASSWORD")
	v.BindEnv("auth.api_key", "HONEYPOT_AUTH_API_KEY", "HACKATHON_API_KEY")
	v.BindEnv("llm.api_key", "HONEYPOT_LLM_API_KEY", "LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "HONEYPOT_LLM_BASE_URL", "LLM_API_BASE")
	v.BindEnv("llm.model", "HONEYPOT_LLM_MODEL", "LLM_MODEL")
	v.BindEnv("llm.allowed_hosts", "HONEYPOT_LLM_ALLOWED_HOSTS")
	v.BindEnv("callback.url", "HONEYPOT_CALLBACK_URL", "GUVI_CALLBACK_URL")
	v.BindEnv("callback.min_turns", "HONEYPOT_CALLBACK_MIN_TURNS", "GUVI_MIN_TURNS")
	v.BindEnv("callback.max_turns", "HONEYPOT_CALLBACK_MAX_TURNS", "GUVI_MAX_TURNS")
	v.BindEnv("callback.retries", "HONEYPOT_CALLBACK_RETRIES", "GUVI_CALLBACK_RETRIES")
	v.BindEnv("callback.backoff_sec", "HONEYPOT_CALLBACK_BACKOFF_SEC", "GUVI_CALLBACK_BACKOFF_SEC")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}
