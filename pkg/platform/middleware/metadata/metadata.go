package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"certledger/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		if userAgent != "" {
			browser, os := ParseUserAgent(userAgent)
			ctx = requestcontext.WithAgentDetails(ctx, browser, os)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseUserAgent returns a short browser and OS description, e.g.
// "Firefox 121.0" and "Linux x86_64".
func ParseUserAgent(raw string) (browser, os string) {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser = strings.TrimSpace(name + " " + version)
	if ua.Bot() {
		browser = "bot: " + browser
	}
	return browser, ua.OS()
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
