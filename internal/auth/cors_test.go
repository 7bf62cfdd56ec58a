package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	const appURL = "http://localhost:3000"
	wrapped := CORS(appURL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("adds credentialed headers for the frontend origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/conversations", nil)
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != appURL {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, appURL)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
			t.Errorf("Access-Control-Allow-Headers = %q", got)
		}
	})

	t.Run("preflight answers 204 without reaching the handler", func(t *testing.T) {
		called := false
		probe := CORS(appURL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
		rec := httptest.NewRecorder()
		probe.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204 for preflight, got %d", rec.Code)
		}
		if called {
			t.Error("preflight must not invoke the wrapped handler")
		}
	})
}
