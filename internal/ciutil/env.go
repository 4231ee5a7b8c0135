package ciutil

import (
	"net/url"
	"os"
	"strings"
)

// Environment variables read by this package.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"

	EnvDatabaseURL         = "DATABASE_URL"
	EnvAccountsTestDBURL   = "ACCOUNTS_TEST_DB_URL"
	EnvAccountsDatabaseURL = "ACCOUNTS_DATABASE_URL"
)

// IsCI reports whether the process runs under a known CI provider.
func IsCI() bool {
	for _, name := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// MaskSensitiveValue hides the password of a URL so it can be logged.
// Values that are not URLs with credentials are returned unchanged.
func MaskSensitiveValue(value string) string {
	u, err := url.Parse(value)
	if err != nil || u.User == nil {
		return value
	}
	if _, ok := u.User.Password(); !ok {
		return value
	}
	// url.UserPassword would percent-escape the mask, so the credentials
	// are spliced in after rendering the rest of the URL.
	masked := *u
	masked.User = url.User(u.User.Username())
	rendered := masked.String()
	prefix := masked.Scheme + "://" + masked.User.String()
	if !strings.HasPrefix(rendered, prefix+"@") {
		return "****"
	}
	return prefix + ":****" + rendered[len(prefix):]
}
