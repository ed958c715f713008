package utils

import (
	"regexp"
	"strings"
)

// NormalizeWebsite lowercases, adds protocol if missing, removes the www.
// prefix and trailing slash. Intended for comparing websites from different
// sources where formatting varies. Distinct from image URL normalization,
// which preserves case and path.
func NormalizeWebsite(u string) string {
	if u == "" {
		return ""
	}

	n := strings.ToLower(strings.TrimSpace(u))
	if !strings.HasPrefix(n, "http://") && !strings.HasPrefix(n, "https://") {
		n = "https://" + n
	}
	n = regexp.MustCompile(`^(https?://)www\.`).ReplaceAllString(n, "$1")
	n = strings.TrimSuffix(n, "/")
	return n
}

// ExtractDomain returns just the host portion of a URL-like string.
// Used by the enrichment allowlist check.
func ExtractDomain(u string) string {
	n := NormalizeWebsite(u)
	d := regexp.MustCompile(`^https?://`).ReplaceAllString(n, "")
	d = regexp.MustCompile(`/.*$`).ReplaceAllString(d, "")
	d = regexp.MustCompile(`:\d+$`).ReplaceAllString(d, "")
	return d
}
