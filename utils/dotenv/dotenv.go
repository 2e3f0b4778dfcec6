package dotenv

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const envFileName = ".env"

// LoadDotEnvs loads the repository's .env file from the current working
// directory. Missing file is not an error in prod where configuration comes
// from real environment variables.
func LoadDotEnvs() error {
	if _, err := os.Stat(envFileName); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(envFileName)
}

// LoadDotEnvsInTests walks up from the test's working directory until it
// finds the repository root's .env file. Test binaries run from the package
// directory, not the repository root, so a plain Load would miss it.
func LoadDotEnvsInTests() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		candidate := filepath.Join(dir, envFileName)
		if _, err := os.Stat(candidate); err == nil {
			return godotenv.Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding a .env, rely on
			// whatever is already in the environment.
			return nil
		}
		dir = parent
	}
}
