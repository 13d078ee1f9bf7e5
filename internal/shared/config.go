package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Backend names accepted by [Config.Validate] and the store selector.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
)

// Config represents the application configuration loaded from a TOML file,
// with credentials and overrides applied from the environment.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Postgres PostgresConfig `toml:"postgres"`
	Mongo    MongoConfig    `toml:"mongo"`
	Redis    RedisConfig    `toml:"redis"`
	Spotify  SpotifyConfig  `toml:"spotify"`
}

// BackendConfig selects the active storage backend.
type BackendConfig struct {
	Name string `toml:"name"`
}

// SQLiteConfig contains embedded database settings.
type SQLiteConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PostgresConfig contains networked relational database settings. The
// password is environment-only.
type PostgresConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"-"`
	DBName       string `toml:"dbname"`
	SSLMode      string `toml:"sslmode"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DSN renders the lib/pq connection string. Never log the result.
func (p PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.DBName, p.SSLMode)
	if p.Password != "" {
		dsn += " password=" + p.Password
	}
	return dsn
}

// MongoConfig contains document store settings.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisConfig contains cache backend settings. The password is
// environment-only.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"-"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// SpotifyConfig carries upstream provider credentials through to the
// (external) API client component. The client secret is environment-only.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"-"`
	RedirectURI  string `toml:"redirect_uri"`
}

// LoadConfig reads and parses a TOML configuration file from the specified
// path, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the
// embedded example config, plus environment overrides.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the
// embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv loads a .env file when present (existing variables win) and folds
// RECORDKEEPER_* overrides and credentials into the config.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	c.Backend.Name = getEnv("RECORDKEEPER_BACKEND", c.Backend.Name)

	c.SQLite.Path = getEnv("RECORDKEEPER_SQLITE_PATH", c.SQLite.Path)

	c.Postgres.Host = getEnv("RECORDKEEPER_POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnvInt("RECORDKEEPER_POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("RECORDKEEPER_POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = os.Getenv("RECORDKEEPER_POSTGRES_PASSWORD")
	c.Postgres.DBName = getEnv("RECORDKEEPER_POSTGRES_DBNAME", c.Postgres.DBName)
	c.Postgres.SSLMode = getEnv("RECORDKEEPER_POSTGRES_SSLMODE", c.Postgres.SSLMode)

	c.Mongo.URI = getEnv("RECORDKEEPER_MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("RECORDKEEPER_MONGO_DATABASE", c.Mongo.Database)

	c.Redis.Addr = getEnv("RECORDKEEPER_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = os.Getenv("RECORDKEEPER_REDIS_PASSWORD")
	c.Redis.DB = getEnvInt("RECORDKEEPER_REDIS_DB", c.Redis.DB)

	c.Spotify.ClientID = getEnv("SPOTIFY_CLIENT_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	c.Spotify.RedirectURI = getEnv("SPOTIFY_REDIRECT_URI", c.Spotify.RedirectURI)
}

// Validate checks that the selected backend's required settings are present.
// Errors wrap ErrConfiguration and are fatal at startup; the selector never
// falls back to a different backend.
func (c *Config) Validate() error {
	switch c.Backend.Name {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite backend requires sqlite.path", ErrConfiguration)
		}
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("%w: postgres backend requires host, user and dbname", ErrConfiguration)
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			return fmt.Errorf("%w: postgres port %d out of range", ErrConfiguration, c.Postgres.Port)
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("%w: mongo backend requires uri and database", ErrConfiguration)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis backend requires addr", ErrConfiguration)
		}
		if c.Redis.TTLSeconds < 0 {
			return fmt.Errorf("%w: redis ttl_seconds cannot be negative", ErrConfiguration)
		}
	case "":
		return fmt.Errorf("%w: no backend selected", ErrConfiguration)
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrConfiguration, c.Backend.Name)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
