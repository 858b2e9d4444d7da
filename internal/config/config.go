// Package config loads the riskcore service configuration: code defaults
// first, then an optional YAML file, then RISKCORE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HTTPServerConfig holds the REST listener settings.
type HTTPServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" json:"rate_limit_burst"`
}

// OracleConfig holds the price oracle acceptance policy.
type OracleConfig struct {
	ValidityWindow time.Duration `yaml:"validity_window" json:"validity_window"`
	MaxDeviationBP int64         `yaml:"max_deviation_bp" json:"max_deviation_bp"`
	MinConfidence  int64         `yaml:"min_confidence" json:"min_confidence"`
	FeedTimeout    time.Duration `yaml:"feed_timeout" json:"feed_timeout"`
}

// RiskConfig holds the risk manager tunables.
type RiskConfig struct {
	GlobalUpdateInterval time.Duration `yaml:"global_update_interval" json:"global_update_interval"`
}

// KafkaConfig holds event publisher settings. Empty Brokers disables Kafka
// and the service falls back to the in-process bus.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// RedisConfig holds the price mirror settings. Empty Address disables the
// mirror.
type RedisConfig struct {
	Address   string        `yaml:"address" json:"address"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// Config is the full service configuration.
type Config struct {
	Owner    string           `yaml:"owner" json:"owner"`
	LogLevel string           `yaml:"log_level" json:"log_level"`
	Server   HTTPServerConfig `yaml:"server" json:"server"`
	Oracle   OracleConfig     `yaml:"oracle" json:"oracle"`
	Risk     RiskConfig       `yaml:"risk" json:"risk"`
	Kafka    KafkaConfig      `yaml:"kafka" json:"kafka"`
	Redis    RedisConfig      `yaml:"redis" json:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("owner", "admin")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit_rps", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)

	v.SetDefault("oracle.validity_window", time.Hour)
	v.SetDefault("oracle.max_deviation_bp", 1000)
	v.SetDefault("oracle.min_confidence", 95)
	v.SetDefault("oracle.feed_timeout", 5*time.Second)

	v.SetDefault("risk.global_update_interval", time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "riskcore.events")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "riskcore")
	v.SetDefault("redis.ttl", 2*time.Hour)
}

// Load builds the configuration. A missing config file is not an error; a
// malformed one is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/riskcore")

	v.SetEnvPrefix("RISKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Owner:    v.GetString("owner"),
		LogLevel: v.GetString("log_level"),
		Server: HTTPServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RateLimitRPS:    v.GetFloat64("server.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("server.rate_limit_burst"),
		},
		Oracle: OracleConfig{
			ValidityWindow: v.GetDuration("oracle.validity_window"),
			MaxDeviationBP: v.GetInt64("oracle.max_deviation_bp"),
			MinConfidence:  v.GetInt64("oracle.min_confidence"),
			FeedTimeout:    v.GetDuration("oracle.feed_timeout"),
		},
		Risk: RiskConfig{
			GlobalUpdateInterval: v.GetDuration("risk.global_update_interval"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Redis: RedisConfig{
			Address:   v.GetString("redis.address"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
			TTL:       v.GetDuration("redis.ttl"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Oracle.ValidityWindow <= 0 {
		return fmt.Errorf("oracle validity window must be positive")
	}
	if c.Oracle.MaxDeviationBP <= 0 {
		return fmt.Errorf("oracle max deviation must be positive")
	}
	if c.Oracle.MinConfidence < 0 || c.Oracle.MinConfidence > 100 {
		return fmt.Errorf("oracle min confidence %d outside [0, 100]", c.Oracle.MinConfidence)
	}
	if c.Risk.GlobalUpdateInterval <= 0 {
		return fmt.Errorf("risk global update interval must be positive")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
