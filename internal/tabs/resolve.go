// Package tabs derives the session-scoping domain from browser tab URLs.
package tabs

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
)

// ResolveDomain extracts the registrable domain from a tab URL. Sessions are
// scoped by this value, so "app.example.com" and "www.example.com" share one
// session list. IP addresses and single-label hosts (localhost, intranet
// names) are used as-is.
func ResolveDomain(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", domain.ErrNoTabURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoTabURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		// Restricted internal pages (about:, chrome:, file:) have no domain.
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrNoTabURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: empty host", domain.ErrNoTabURL)
	}

	if net.ParseIP(host) != nil {
		return host, nil
	}

	if !strings.Contains(host, ".") {
		return host, nil
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Hosts under a bare public suffix still get scoped by full hostname.
		return host, nil
	}
	return etld1, nil
}
