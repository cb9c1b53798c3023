package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
)

func TestResolveDomain(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain host", "https://example.com/path", "example.com"},
		{"subdomain collapses", "https://app.example.com/login", "example.com"},
		{"www collapses", "http://www.example.com", "example.com"},
		{"multi-part suffix", "https://shop.example.co.uk", "example.co.uk"},
		{"port stripped", "http://example.com:8080/x", "example.com"},
		{"uppercase lowered", "https://Example.COM", "example.com"},
		{"ipv4 literal", "http://127.0.0.1:3000", "127.0.0.1"},
		{"localhost", "http://localhost:5173", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDomain(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDomainRejectsRestrictedPages(t *testing.T) {
	for _, raw := range []string{"", "   ", "about:blank", "chrome://extensions", "file:///tmp/x.html"} {
		_, err := ResolveDomain(raw)
		assert.ErrorIs(t, err, domain.ErrNoTabURL, raw)
	}
}
