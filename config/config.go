package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "config.yaml"

type Storage struct {
	Type           string `yaml:"type"`
	MongoURI       string `yaml:"mongoURI"`
	MongoDatabase  string `yaml:"mongoDatabase"`
	DataSourceName string `yaml:"dataSourceName"`
	LocalPath      string `yaml:"localPath"`
	RedisURL       string `yaml:"redisURL"`
	S3Bucket       string `yaml:"s3Bucket"`
	S3Prefix       string `yaml:"s3Prefix"`
	S3Endpoint     string `yaml:"s3Endpoint"`
}

type Config struct {
	Listen         string        `yaml:"listen"`
	LogLevel       string        `yaml:"logLevel"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	Storage        Storage       `yaml:"storage"`
}

func Default() *Config {
	return &Config{
		Listen:         ":3002",
		LogLevel:       "info",
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   10 << 20,
		Storage: Storage{
			Type:           "mongodb",
			MongoURI:       "mongodb://localhost:27017",
			MongoDatabase:  "drawboard",
			DataSourceName: "drawboard.db",
			LocalPath:      "./data",
			RedisURL:       "redis://localhost:6379/0",
			S3Prefix:       "drawings/",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in that order. An empty path falls back to CONFIG_PATH and then
// to config.yaml; only an explicitly named file has to exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Listen, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.MongoURI, "MONGODB_URI")
	setString(&c.Storage.MongoDatabase, "MONGODB_DATABASE")
	setString(&c.Storage.DataSourceName, "DATA_SOURCE_NAME")
	setString(&c.Storage.LocalPath, "LOCAL_STORAGE_PATH")
	setString(&c.Storage.RedisURL, "REDIS_URL")
	setString(&c.Storage.S3Bucket, "S3_BUCKET_NAME")
	setString(&c.Storage.S3Prefix, "S3_PREFIX")
	setString(&c.Storage.S3Endpoint, "S3_ENDPOINT")

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_BODY_BYTES %q: %w", v, err)
		}
		c.MaxBodyBytes = n
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, origin)
			}
		}
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}

	switch c.Storage.Type {
	case "mongodb":
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return fmt.Errorf("mongodb storage requires a uri and a database name")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
	case "memory", "sqlite", "filesystem", "redis":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}
