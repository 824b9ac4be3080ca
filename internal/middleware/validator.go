package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization for the upload surface

// allowedVideoTypes is the upload mime allow-list. The pipeline itself
// re-infers the type from the extension; this is the first gate.
var allowedVideoTypes = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
}

// ValidateVideoType checks the declared mime type against the allow-list.
// An empty declaration is accepted; the extension decides later.
func ValidateVideoType(mimeType string) error {
	if mimeType == "" {
		return nil
	}
	// strip parameters like codecs=...
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if !allowedVideoTypes[strings.ToLower(base)] {
		return fmt.Errorf("unsupported video type: %s", mimeType)
	}
	return nil
}

// ValidateFileName rejects traversal and control characters in the declared
// upload filename. The name is only used for its extension, but it still
// never gets to smuggle a path.
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long")
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("filename must not contain a path")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("path traversal detected")
	}
	for _, r := range name {
		if r < 32 || r == 0x7f {
			return fmt.Errorf("invalid characters in filename")
		}
	}
	return nil
}

// ValidatePatientID validates patient identifier format
func ValidatePatientID(patient string) error {
	if patient == "" {
		return fmt.Errorf("patient ID cannot be empty")
	}
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, patient)
	if !matched {
		return fmt.Errorf("invalid patient ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateCheckInID validates check-in ID format (uuid)
func ValidateCheckInID(id string) error {
	if id == "" {
		return fmt.Errorf("check-in ID cannot be empty")
	}
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, strings.ToLower(id))
	if !matched {
		return fmt.Errorf("invalid check-in ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePageSize validates pagination page size
func ValidatePageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

// ValidateDays validates insight window size
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
