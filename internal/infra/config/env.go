package config

import (
	"os"
	"strings"

	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// Environment variable names holding secrets.
const (
	EnvGoogleAPIKey  = "GOOGLE_API_KEY"
	EnvAstraEndpoint = "ASTRA_DB_API_ENDPOINT"
	EnvAstraToken    = "ASTRA_DB_APPLICATION_TOKEN"
	EnvAstraKeyspace = "ASTRA_DB_KEYSPACE"
	EnvS3AccessKey   = "S3_ACCESS_KEY"
	EnvS3SecretKey   = "S3_SECRET_KEY"
)

// MissingEnv lists the names that are unset or blank.
func MissingEnv(names ...string) []string {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// RequireEnv returns the values of the named variables or a credential_error naming every missing one.
func RequireEnv(names ...string) (map[string]string, error) {
	if missing := MissingEnv(names...); len(missing) > 0 {
		return nil, apperrors.Wrap(apperrors.CodeCredential, "missing environment variables: "+strings.Join(missing, ", "), nil)
	}
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = strings.TrimSpace(os.Getenv(name))
	}
	return values, nil
}
