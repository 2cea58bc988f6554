package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort          string
	DatabaseURL       string
	JWTSecret         string
	DirectoryAPIURL   string
	DirectoryAPIToken string
	CodehostAPIURL    string
	CacheTTLMinutes   int
	LogLevel          string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "niceties.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		DirectoryAPIURL:   getEnv("DIRECTORY_API_URL", "https://www.recurse.com/api/v1"),
		DirectoryAPIToken: getEnv("DIRECTORY_API_TOKEN", ""),
		CodehostAPIURL:    getEnv("CODEHOST_API_URL", "https://api.github.com"),
		CacheTTLMinutes:   getEnvAsInt("CACHE_TTL_MINUTES", 0), // 0 = entries never expire
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	if AppConfig.DirectoryAPIToken == "" {
		log.Fatal("DIRECTORY_API_TOKEN environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
