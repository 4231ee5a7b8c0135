package ciutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

const (
	// StandardCIDatabase is used when a CI database URL names no database.
	StandardCIDatabase = "accounts_test"

	// StandardCIOptions are applied when a CI database URL has no query.
	StandardCIOptions = "sslmode=disable"
)

// GetTestDatabaseURL returns the first of DATABASE_URL, ACCOUNTS_TEST_DB_URL
// and ACCOUNTS_DATABASE_URL that is set, or "" when none is. In CI a URL
// without a database name or options gets the standard ones.
func GetTestDatabaseURL(logger *slog.Logger) string {
	var dbURL, source string
	for _, name := range []string{EnvDatabaseURL, EnvAccountsTestDBURL, EnvAccountsDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			dbURL, source = v, name
			break
		}
	}
	if dbURL == "" {
		return ""
	}
	if logger != nil {
		logger.Debug("using test database url", "var", source, "value", MaskSensitiveValue(dbURL))
	}

	if !IsCI() {
		return dbURL
	}
	standardized, err := standardizeDatabaseURL(dbURL)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to standardize database url", "error", err)
		}
		return dbURL
	}
	return standardized
}

func standardizeDatabaseURL(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return dbURL, nil
	}

	if strings.TrimPrefix(u.Path, "/") == "" {
		u.Path = "/" + StandardCIDatabase
	}
	if u.RawQuery == "" {
		u.RawQuery = StandardCIOptions
	}
	return u.String(), nil
}
