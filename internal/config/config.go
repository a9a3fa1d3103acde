package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the knobs the application reads at startup.
type Config struct {
	Addr        string
	DataFile    string
	ModelPath   string
	ClassesFile string
	JWTSecret   string
}

// Load reads configuration from an optional .env file and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:        getEnv("CROPMANAGER_ADDR", ":8080"),
		DataFile:    getEnv("CROPMANAGER_DATA_FILE", "user_data.json"),
		ModelPath:   getEnv("CROPMANAGER_MODEL_PATH", "my_model"),
		ClassesFile: getEnv("CROPMANAGER_CLASSES_FILE", "classes.txt"),
		JWTSecret:   getEnv("CROPMANAGER_JWT_SECRET", "dev-secret"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
