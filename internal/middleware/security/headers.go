package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds the security headers sent with every API response.
type HeadersConfig struct {
	CSP                 string
	HSTSMaxAge          int
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
	// NoStore marks responses as uncacheable; ledger data changes on every write.
	NoStore bool
}

// DefaultHeadersConfig returns defaults for a JSON API.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:          31536000,
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CrossOriginResource: "same-origin",
		NoStore:             true,
	}
}

// Headers returns middleware applying cfg to every response.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", cfg.XContentTypeOptions)
			h.Set("X-Frame-Options", cfg.XFrameOptions)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			h.Set("Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
			if cfg.CSP != "" {
				h.Set("Content-Security-Policy", cfg.CSP)
			}
			if cfg.NoStore {
				h.Set("Cache-Control", "no-store")
			}
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
