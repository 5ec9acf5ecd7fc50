package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	SkipAuth    bool
	Environment string
	AppId       string

	MongoURI string
	DBName   string

	PostgresDSN string // Destination store (synced tables live here)

	GlideAPIURL      string // Base URL of the Glide big-tables API
	GlideTimeoutSecs int    // Per-request timeout for Glide calls
	SyncPageLimit    int    // Safety cap on pages fetched per run (0 = unlimited)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-glidesync"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "go-glidesync"),

		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=glidesync sslmode=disable"),

		GlideAPIURL:      getEnv("GLIDE_API_URL", "https://api.glideapp.io/api/function"),
		GlideTimeoutSecs: getEnvInt("GLIDE_TIMEOUT_SECONDS", 30),
		SyncPageLimit:    getEnvInt("SYNC_PAGE_LIMIT", 0),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
