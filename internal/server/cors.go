// Package server provides shared middleware for the HTTP API.
package server

import (
	"net"
	"net/http"
	"strings"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins []string // empty = allow all (*)
}

// IsOriginAllowed reports whether origin matches one of the allowed
// patterns. Patterns are exact origins, "*" for any origin, or
// "*.example.com" for any subdomain of example.com.
func IsOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			// Keep the dot so "evilexample.com" does not match "*.example.com".
			if strings.HasSuffix(origin, allowed[1:]) {
				return true
			}
		}
	}
	return false
}

// CORSMiddlewareWithConfig adds CORS headers to responses.
// If AllowedOrigins is empty, it defaults to "*". Otherwise the request
// Origin must match an allowed pattern, and preflight requests from other
// origins are rejected.
func CORSMiddlewareWithConfig(cfg CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigin := "*"
		if len(cfg.AllowedOrigins) > 0 {
			if !IsOriginAllowed(origin, cfg.AllowedOrigins) {
				// No CORS headers, so the browser blocks the response.
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			allowedOrigin = origin
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client IP address from the request.
// The leftmost X-Forwarded-For entry and X-Real-IP are honored only when
// they parse as IP addresses.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	// RemoteAddr is "IP:port"; some test transports set a bare IP.
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return "unknown"
}
