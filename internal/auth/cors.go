// cors.go -- CORS middleware for the browser frontend.
//
// Cookies ride on every request, so Allow-Credentials is always true and the
// allowed origin must be the configured frontend URL, never a wildcard.
package auth

import "net/http"

// CORS returns middleware that adds CORS headers for the given frontend
// origin and answers OPTIONS preflights with 204 without invoking the
// wrapped handler.
func CORS(appURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", appURL)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, HEAD, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			// Cache-friendly: responses differ per Origin.
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
