package extract

import (
	"net/url"
	"strings"
)

// HostMatches reports whether rawURL's host is one of domains or a subdomain of one.
func HostMatches(rawURL string, domains []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}
	for _, domain := range domains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// PlaceholderDomains are sample hosts whose postings are never stored or shown.
var PlaceholderDomains = []string{"example.com", "example.org", "example.net", "test.com", "fake.com", "scam.com"}

func IsPlaceholderURL(rawURL string) bool {
	return HostMatches(rawURL, PlaceholderDomains)
}
