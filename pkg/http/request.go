package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// IPConfig holds the trusted proxy ranges used for client IP extraction
type IPConfig struct {
	trustedProxies []*net.IPNet
}

// NewIPConfig parses CIDR ranges of trusted proxies. Invalid entries are
// reported, not skipped.
func NewIPConfig(cidrs []string) (*IPConfig, error) {
	cfg := &IPConfig{}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		cfg.trustedProxies = append(cfg.trustedProxies, ipNet)
	}
	return cfg, nil
}

// ExtractClientIP returns the client address used to key the IP guard.
// X-Forwarded-For and X-Real-IP are honoured only when the direct peer is a
// trusted proxy, so clients cannot pick their own key by spoofing headers.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddrIP(r)

	if config != nil && config.isTrusted(remoteIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				ip = strings.TrimSpace(ip)
				if net.ParseIP(ip) != nil {
					return ip
				}
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
			return xri
		}
	}

	return remoteIP
}

// IsSecureRequest reports whether the request arrived over HTTPS, either
// directly or via a trusted proxy that set X-Forwarded-Proto.
func IsSecureRequest(r *http.Request, config *IPConfig) bool {
	if r.TLS != nil {
		return true
	}
	if config == nil || !config.isTrusted(remoteAddrIP(r)) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func remoteAddrIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) isTrusted(ip string) bool {
	if len(c.trustedProxies) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range c.trustedProxies {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}

// DecodeJSON decodes a size-limited JSON body into dst, rejecting trailing data
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid request body: trailing data")
	}
	return nil
}
