package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	unknownDomain = "unknown"
	wwwPrefix     = "www."

	// waybackLayout is the 14-digit CDX timestamp layout.
	waybackLayout = "20060102150405"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL canonicalizes an absolute http(s) URL so the same link always
// maps to one archive row: lower-case scheme and host, no trailing host dot,
// no default port, "/" for an empty path, no fragment, sorted query pairs.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	port := parsed.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	normalized := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     parsed.Path,
		RawPath:  parsed.RawPath,
		RawQuery: sortQuery(parsed.RawQuery),
	}
	if normalized.Path == "" {
		normalized.Path = "/"
		normalized.RawPath = ""
	}

	return normalized.String(), nil
}

// sortQuery orders raw key=value pairs without re-encoding them.
func sortQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' })
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// URLHash returns the SHA-256 hex digest of rawURL.
func URLHash(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(h[:])
}

// ExtractDomain returns the lower-cased host of rawURL without a "www." prefix,
// or "unknown" when there is no host.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return unknownDomain
	}
	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	return strings.TrimPrefix(host, wwwPrefix)
}

// ParseWaybackTimestamp parses a 14-digit CDX timestamp as UTC.
func ParseWaybackTimestamp(stamp string) (time.Time, error) {
	if len(stamp) != len(waybackLayout) {
		return time.Time{}, fmt.Errorf("wayback timestamp %q: want %d digits", stamp, len(waybackLayout))
	}
	t, err := time.ParseInLocation(waybackLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("wayback timestamp %q: %w", stamp, err)
	}
	return t, nil
}

// FormatWaybackTimestamp renders t as a 14-digit CDX timestamp.
func FormatWaybackTimestamp(t time.Time) string {
	return t.UTC().Format(waybackLayout)
}
