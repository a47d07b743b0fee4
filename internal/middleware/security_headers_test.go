package middleware

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
)

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "development"})(okHandler())

	req := httptest.NewRequest("GET", "/auth/me", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cache-Control", "no-store"},
		{"Strict-Transport-Security", ""},
	}

	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}
}

func TestSecurityHeaders_HSTSInProduction(t *testing.T) {
	ipConfig, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("NewIPConfig: %v", err)
	}
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "production", IPConfig: ipConfig})(okHandler())

	tests := []struct {
		name       string
		remoteAddr string
		proto      string
		tls        bool
		wantHSTS   bool
	}{
		{name: "plain http", remoteAddr: "203.0.113.5:1234"},
		{name: "direct tls", remoteAddr: "203.0.113.5:1234", tls: true, wantHSTS: true},
		{name: "trusted proxy https", remoteAddr: "10.0.0.2:1234", proto: "https", wantHSTS: true},
		{name: "trusted proxy http", remoteAddr: "10.0.0.2:1234", proto: "http"},
		{name: "untrusted client claims https", remoteAddr: "203.0.113.5:1234", proto: "https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("Strict-Transport-Security") != ""
			if got != tt.wantHSTS {
				t.Errorf("HSTS sent: got %v, want %v", got, tt.wantHSTS)
			}
		})
	}
}

func TestSecurityHeaders_NoTrustedProxies(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "production"})(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should not trust X-Forwarded-Proto without proxies, got %q", got)
	}
}
