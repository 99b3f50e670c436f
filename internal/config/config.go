package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Identity provider modes
const (
	AuthModeFirebase = "firebase"
	AuthModeHeader   = "header"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        int
	BaseURL     string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Driver string
	Path   string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	AuthMode        string
}

type RedisConfig struct {
	URL string // empty disables cross-instance fan-out
}

type AppConfig struct {
	Environment string
	LogLevel    string
	LogFormat   string
	SentryDSN   string
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("PORT", 8081),
			BaseURL:     getEnv("BASE_URL", ""),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:   getEnv("DB_PATH", "pizzarate.db"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			AuthMode:        strings.ToLower(getEnv("AUTH_MODE", AuthModeHeader)),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			SentryDSN:   getEnv("SENTRY_DSN", ""),
		},
	}
}

// UsesFirebase reports whether any component needs the Firebase Admin SDK
func (c *Config) UsesFirebase() bool {
	return c.Database.Driver == DriverFirestore || c.Firebase.AuthMode == AuthModeFirebase
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverFirestore, c.Database.Driver)
	}

	switch c.Firebase.AuthMode {
	case AuthModeHeader:
		if c.App.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=header is not allowed when APP_ENV=production")
		}
	case AuthModeFirebase:
		if c.Firebase.CredentialsPath == "" && c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH or FIREBASE_PROJECT_ID is required for firebase auth")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeFirebase, AuthModeHeader, c.Firebase.AuthMode)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
