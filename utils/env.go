package utils

import "os"

const (
	prodEnv = "prod"
	devEnv  = "dev"
)

// IsProdEnv returns true iff the process runs in the production
// environment. Metrics export and the durable SQS job queue are only used
// in prod; dev and tests stay fully local.
func IsProdEnv() bool {
	return os.Getenv("FEEDSTREAM_ENV") == prodEnv
}

// EnvName returns the current environment name, defaulting to dev.
func EnvName() string {
	env := os.Getenv("FEEDSTREAM_ENV")
	if len(env) == 0 {
		return devEnv
	}
	return env
}
