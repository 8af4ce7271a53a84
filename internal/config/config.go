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
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Inference struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"inference"`

	Pipeline struct {
		Workers          int     `yaml:"workers"`
		MaxAttempts      int     `yaml:"maxAttempts"`
		JobTimeoutSec    int     `yaml:"jobTimeoutSec"`
		InitialBackoffMS int     `yaml:"initialBackoffMs"`
		AccuracyFloor    float64 `yaml:"accuracyFloor"`
	} `yaml:"pipeline"`

	Audio struct {
		MaxSizeBytes int64    `yaml:"maxSizeBytes"`
		Species      []string `yaml:"species"`
	} `yaml:"audio"`

	Encryption struct {
		Key string `yaml:"key"` // 32-byte key; env AES_KEY overrides
	} `yaml:"encryption"`

	Auth struct {
		// pemetaan API key -> owner id
		Keys map[string]string `yaml:"keys"`
	} `yaml:"auth"`
}

// DefaultSpecies is used when audio.species is empty in the config file.
var DefaultSpecies = []string{
	"canis_lupus",
	"panthera_leo",
	"delphinus_delphis",
	"gorilla_gorilla",
	"elephas_maximus",
	"corvus_brachyrhynchos",
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
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Inference.APIKey = v
	}
	if v := os.Getenv("AES_KEY"); v != "" {
		c.Encryption.Key = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.JobTimeoutSec <= 0 {
		c.Pipeline.JobTimeoutSec = 120
	}
	if c.Pipeline.InitialBackoffMS <= 0 {
		c.Pipeline.InitialBackoffMS = 500
	}
	if c.Pipeline.AccuracyFloor <= 0 {
		c.Pipeline.AccuracyFloor = 0.80
	}
	if c.Audio.MaxSizeBytes <= 0 {
		c.Audio.MaxSizeBytes = 50 << 20 // 50MB
	}
	if len(c.Audio.Species) == 0 {
		c.Audio.Species = DefaultSpecies
	}
}

// JobTimeout is the wall-clock budget for one analysis job.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Pipeline.JobTimeoutSec) * time.Second
}

// InitialBackoff is the first retry delay for transient inference errors.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Pipeline.InitialBackoffMS) * time.Millisecond
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

// PostgresDSN builds a lib/pq connection string.
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
