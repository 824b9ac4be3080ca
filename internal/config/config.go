package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Gemini struct {
		APIKey              string `yaml:"apiKey"`
		Model               string `yaml:"model"`
		PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
		MaxPollAttempts     int    `yaml:"maxPollAttempts"`
	} `yaml:"gemini"`

	OpenAI struct {
		Enabled bool   `yaml:"enabled"` // insights narrative on/off
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Upload struct {
		TempDir  string `yaml:"tempDir"`
		MaxBytes int64  `yaml:"maxBytes"`
	} `yaml:"upload"`

	Probe struct {
		Enabled            bool    `yaml:"enabled"`
		MaxDurationSeconds float64 `yaml:"maxDurationSeconds"`
	} `yaml:"probe"`

	Auth struct {
		// tenant -> api key; empty map disables auth
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// PollInterval with default
func (c *Config) PollInterval() time.Duration {
	if c.Gemini.PollIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Gemini.PollIntervalSeconds) * time.Second
}
