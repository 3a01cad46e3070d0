package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads the .env file for the given environment.
// Lookup order: .env.<env> then .env. Variables already present in the
// process environment are never overridden.
func LoadEnv(env string) error {
	if env != "" {
		if err := godotenv.Load(fmt.Sprintf(".env.%s", env)); err == nil {
			return nil
		}
	}
	return godotenv.Load()
}

// GetEnv returns the environment variable value, "" when unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv returns an integer environment variable, 0 when unset or invalid.
func GetIntEnv(key string) int64 {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// GetBoolEnv returns a boolean environment variable.
// Accepts 1/t/T/true/TRUE/True (strconv rules), false otherwise.
func GetBoolEnv(key string) bool {
	value := os.Getenv(key)
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}

// RandText returns a random hex string of the given length.
func RandText(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)[:n]
}
