package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBaseURL marks a rejected OPENROUTER_BASE_URL.
var ErrBaseURL = errors.New("invalid OPENROUTER_BASE_URL")

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "*.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL checks the chat endpoint before the API key is sent to it.
// allowedHosts entries are host names; a "*." prefix admits any subdomain.
// An empty list means openrouter.ai and its subdomains.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBaseURL, err)
	}
	reject := func(reason string) error {
		return fmt.Errorf("%w %q: %s", ErrBaseURL, baseURL, reason)
	}

	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return reject("absolute URL with host is required")
	case u.User != nil:
		return reject("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return reject("query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return reject("https is required")
	}

	host := strings.ToLower(u.Hostname())
	if !hostAllowed(host, hostPatterns(allowedHosts)) {
		return reject(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

// hostPatterns cleans user supplied host entries: schemes, slashes and ports
// are dropped.
func hostPatterns(allowedHosts []string) []string {
	out := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.LastIndex(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v == "" || v == "*." {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}

func hostAllowed(host string, patterns []string) bool {
	for _, p := range patterns {
		if suffix, ok := strings.CutPrefix(p, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == p {
			return true
		}
	}
	return false
}
