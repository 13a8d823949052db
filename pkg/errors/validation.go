package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds package, tag and command names sent to a feed.
const maxNameLength = 256

// ValidatePackageName validates a package name or name pattern before it is
// placed in a feed query.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., /, \)
//   - Maximum length of 256 characters
//
// Wildcards are allowed here; whether a wildcard is acceptable depends on the
// request shape and is checked by the caller.
func ValidatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeValidation, "package name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeValidation, "package name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeValidation, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..", // Parent directory
		"/",  // Path separator
		"\\", // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeValidation, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// tagRegex matches gallery tags and command names.
// Gallery tags never contain whitespace; search terms are whitespace-tokenized.
var tagRegex = regexp.MustCompile(`^[^\s'"]+$`)

// ValidateTag validates a tag or command name used as a search term.
func ValidateTag(tag string) error {
	if tag == "" {
		return New(ErrCodeValidation, "tag cannot be empty")
	}
	if len(tag) > maxNameLength {
		return New(ErrCodeValidation, "tag too long (max %d characters)", maxNameLength)
	}
	if !tagRegex.MatchString(tag) {
		return New(ErrCodeValidation, "invalid tag: %q", tag)
	}
	return nil
}

// ValidateURL validates a repository base address.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeValidation, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeValidation, "URL must use http or https scheme")
	}

	return nil
}
