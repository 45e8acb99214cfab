package stringutil

import (
	"regexp"

	"github.com/nyxreleaseng/nyx/pkg/logger"
)

var sanitizeLog = logger.New("stringutil:sanitize")

// Regex patterns for detecting potential secret/credential values leaking into
// logs or error messages.
var (
	// Match uppercase snake_case identifiers that look like credential names
	// (e.g., AUTHENTICATION_TOKEN, GH_TOKEN, GITLAB_API_TOKEN).
	secretNamePattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]*_[A-Z0-9_]+)\b`)

	// Match PascalCase identifiers ending with security-related suffixes
	// (e.g., AuthenticationToken, ApiKey, BearerToken).
	pascalCaseSecretPattern = regexp.MustCompile(`\b([A-Z][a-z0-9]*(?:[A-Z][a-z0-9]*)*(?:Token|Key|Secret|Password|Credential|Auth))\b`)

	// Common non-sensitive identifiers to exclude from redaction so ordinary
	// configuration field names stay readable in logs.
	commonConfigKeywords = map[string]bool{
		"GIT_COMMIT":          true,
		"GIT_TAG":             true,
		"GIT_PUSH":            true,
		"RELEASE_TYPE":        true,
		"RELEASE_SCOPE":       true,
		"STATE_FILE":          true,
		"DRY_RUN":             true,
		"BASE_URI":            true,
		"REPOSITORY_NAME":     true,
		"REPOSITORY_OWNER":    true,
		"VERSION_RANGE":       true,
		"INITIAL_VERSION":     true,
		"CONFIGURATION_FILE":  true,
		"WORKING_DIRECTORY":   true,
		"COMMIT_MESSAGE":      true,
		"TAG_MESSAGE":         true,
	}
)

// SanitizeErrorMessage redacts credential-shaped substrings from a message
// before it reaches a log line or a persisted error, matching the
// never-log-credentials requirement on State and the hosting service
// abstraction.
func SanitizeErrorMessage(message string) string {
	if message == "" {
		return message
	}

	sanitizeLog.Printf("sanitizing message: length=%d", len(message))

	sanitized := secretNamePattern.ReplaceAllStringFunc(message, func(match string) string {
		if commonConfigKeywords[match] {
			return match
		}
		sanitizeLog.Printf("redacted snake_case credential pattern: %s", match)
		return "[REDACTED]"
	})

	sanitized = pascalCaseSecretPattern.ReplaceAllString(sanitized, "[REDACTED]")

	if sanitized != message {
		sanitizeLog.Print("message sanitization applied redactions")
	}

	return sanitized
}

// SanitizeValue redacts a raw credential value (a token, a password) so it
// never appears verbatim even if the caller forgets to route it through
// SanitizeErrorMessage first. Short values are fully redacted; longer ones
// keep a short prefix to aid debugging without disclosing the secret.
func SanitizeValue(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 4 {
		return "[REDACTED]"
	}
	return value[:4] + "…[REDACTED]"
}
