package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var load sync.Once

// Config reads a variable from the environment, loading the .env overlay once.
func Config(key string) string {
	load.Do(func() {
		godotenv.Load(".env")
	})

	return os.Getenv(key)
}
