// Package extract finds http(s) URLs in raw content text and classifies them
// as internal or external to the content host.
package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern stops at whitespace and at the delimiters of wiki and HTML markup.
var urlPattern = regexp.MustCompile(`https?://[^\s|\]})<>"']+`)

// trailingPunctuation is stripped from the end of every match, repeatedly.
const trailingPunctuation = ".,;:!?)"

// Extract returns the distinct URLs in text in first-occurrence order.
// It never fails; text without URLs yields an empty slice.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunctuation)
		if m == "" || !hasAuthority(m) {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}

	return urls
}

// hasAuthority drops bare "http://" left after trimming.
func hasAuthority(m string) bool {
	_, rest, _ := strings.Cut(m, "://")
	return rest != ""
}

// Kind is the result of Classify.
type Kind string

const (
	// Internal links point at the content host itself.
	Internal Kind = "internal"
	// External links point anywhere else and are tracked.
	External Kind = "external"
)

// Classify reports whether rawURL belongs to serverHost. serverHost may be a
// bare host ("flowarts.wiki") or a server URL ("https://flowarts.wiki").
// Hosts compare case-insensitively and ports are ignored. A URL without a
// parseable host is External.
func Classify(rawURL, serverHost string) Kind {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return External
	}
	host := parsed.Hostname()
	if host == "" {
		return External
	}

	server := hostOf(serverHost)
	if server != "" && strings.EqualFold(host, server) {
		return Internal
	}
	return External
}

func hostOf(serverHost string) string {
	serverHost = strings.TrimSpace(serverHost)
	if strings.Contains(serverHost, "://") {
		if parsed, err := url.Parse(serverHost); err == nil {
			return parsed.Hostname()
		}
		return ""
	}
	// bare host, possibly with a port
	if parsed, err := url.Parse("//" + serverHost); err == nil {
		return parsed.Hostname()
	}
	return serverHost
}
