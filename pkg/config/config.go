package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Narrative NarrativeConfig
	Policy    PolicyConfig
	Econ      EconConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Run       RunConfig
	Enrich    EnrichConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type NarrativeConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type PolicyConfig struct {
	BaseURL      string
	APIKey       string
	TimeoutSec   int
	PageSize     int
	LookbackDays int
}

type EconConfig struct {
	BaseURL      string
	APIKey       string
	TimeoutSec   int
	LookbackDays int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type RunConfig struct {
	ConcurrencyCap  int
	ReducedTopN     int
	DeadlineSec     int
	FreshnessDays   int
	DecayFloor      float64
	ScoreThreshold  float64
	NarrativeWeight float64
	PolicyWeight    float64
	EconWeight      float64
	RetryMaxAttempts int
	RetryBaseDelayMS int
	RetryMaxDelayMS  int
}

type EnrichConfig struct {
	Enabled bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/feed-engine")

	viper.SetEnvPrefix("INTEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate enforces mandatory credentials and parameter ranges. A run must
// never start with an invalid configuration; everything caught here is fatal.
func (c *Config) Validate() error {
	if c.Narrative.APIKey == "" {
		return fmt.Errorf("%w: narrative.apiKey is required", ErrConfiguration)
	}
	if c.Policy.APIKey == "" {
		return fmt.Errorf("%w: policy.apiKey is required", ErrConfiguration)
	}
	if c.Econ.APIKey == "" {
		return fmt.Errorf("%w: econ.apiKey is required", ErrConfiguration)
	}
	if c.Run.ConcurrencyCap < 1 {
		return fmt.Errorf("%w: run.concurrencyCap must be >= 1, got %d", ErrConfiguration, c.Run.ConcurrencyCap)
	}
	if c.Run.ReducedTopN < 1 {
		return fmt.Errorf("%w: run.reducedTopN must be >= 1, got %d", ErrConfiguration, c.Run.ReducedTopN)
	}
	if c.Run.FreshnessDays < 1 {
		return fmt.Errorf("%w: run.freshnessDays must be >= 1, got %d", ErrConfiguration, c.Run.FreshnessDays)
	}
	if c.Run.DecayFloor <= 0 || c.Run.DecayFloor > 1 {
		return fmt.Errorf("%w: run.decayFloor must be in (0,1], got %f", ErrConfiguration, c.Run.DecayFloor)
	}
	if c.Run.ScoreThreshold < 0 || c.Run.ScoreThreshold > 1 {
		return fmt.Errorf("%w: run.scoreThreshold must be in [0,1], got %f", ErrConfiguration, c.Run.ScoreThreshold)
	}
	for name, w := range map[string]float64{
		"run.narrativeWeight": c.Run.NarrativeWeight,
		"run.policyWeight":    c.Run.PolicyWeight,
		"run.econWeight":      c.Run.EconWeight,
	} {
		if w <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %f", ErrConfiguration, name, w)
		}
	}
	if c.Run.RetryMaxAttempts < 1 {
		return fmt.Errorf("%w: run.retryMaxAttempts must be >= 1, got %d", ErrConfiguration, c.Run.RetryMaxAttempts)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("narrative.model", "gpt-4")
	viper.SetDefault("narrative.temperature", 0.2)
	viper.SetDefault("narrative.maxTokens", 2048)
	viper.SetDefault("narrative.timeoutSec", 120)

	viper.SetDefault("policy.baseURL", "https://api.globaltradealert.org/api/v1/data/")
	viper.SetDefault("policy.timeoutSec", 30)
	viper.SetDefault("policy.pageSize", 100)
	viper.SetDefault("policy.lookbackDays", 180)

	viper.SetDefault("econ.baseURL", "https://api.stlouisfed.org/fred")
	viper.SetDefault("econ.timeoutSec", 30)
	viper.SetDefault("econ.lookbackDays", 90)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/feed.db")

	viper.SetDefault("run.concurrencyCap", 3)
	viper.SetDefault("run.reducedTopN", 5)
	viper.SetDefault("run.deadlineSec", 600)
	viper.SetDefault("run.freshnessDays", 30)
	viper.SetDefault("run.decayFloor", 0.6)
	viper.SetDefault("run.scoreThreshold", 0.25)
	viper.SetDefault("run.narrativeWeight", 0.9)
	viper.SetDefault("run.policyWeight", 1.15)
	viper.SetDefault("run.econWeight", 1.05)
	viper.SetDefault("run.retryMaxAttempts", 3)
	viper.SetDefault("run.retryBaseDelayMS", 500)
	viper.SetDefault("run.retryMaxDelayMS", 10000)

	viper.SetDefault("enrich.enabled", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
