package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	ImageDataPath string // Base path for uploaded vehicle images
	ReportCron    string // Cron expression for the periodic marketplace report
	CORSOrigin    string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DATABASE_PATH", "./openwheels.db"),
		ImageDataPath: getEnv("IMAGE_DATA_PATH", "./vehicle-images"),
		ReportCron:    getEnv("REPORT_CRON", "0 6 * * *"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
