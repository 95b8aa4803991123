package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// dotEnvFiles are read in order; the first file to set a key wins.
var dotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv copies the present dotenv files into the process environment
// without overriding variables that are already set. It returns the files it
// found; a malformed file is an error.
func LoadDotEnv() ([]string, error) {
	var found []string
	for _, f := range dotEnvFiles {
		if _, err := os.Stat(f); err == nil {
			found = append(found, f)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(found...); err != nil {
		return found, fmt.Errorf("failed to load %v: %w", found, err)
	}
	return found, nil
}
