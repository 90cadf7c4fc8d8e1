package project

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"
)

// DeriveProjectID builds a stable project identifier from the source URL and
// start time. Projects without a URL are tagged as manual.
func DeriveProjectID(sourceURL string, now time.Time) string {
	host := "manual"
	if trimmed := strings.TrimSpace(sourceURL); trimmed != "" {
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			host = sanitizeHost(parsed.Host)
		} else {
			host = sanitizeHost(trimmed)
		}
	}
	return fmt.Sprintf("project-%s-%d", host, now.UnixMilli())
}

func sanitizeHost(host string) string {
	var b strings.Builder
	b.Grow(len(host))
	for _, r := range strings.ToLower(host) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	if cleaned == "" {
		return "manual"
	}
	return cleaned
}

// NewSectionID mints an identifier for a user-added section.
func NewSectionID(now time.Time) string {
	return fmt.Sprintf("section-%d-%04d", now.UnixMilli(), rand.Intn(10000))
}
