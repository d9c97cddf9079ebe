// Package main implements a mock provider server for local development.
// It simulates the GoTrue-style identity endpoints and the Nominatim and
// Overpass geocoding APIs so the full login and store-registration flows
// work without real credentials or network access.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// fixedCode is the one-time code every login accepts.
const fixedCode = "123456"

// sessionStore tracks tokens issued by the mock verify endpoint.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]mockUser
}

type mockUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]mockUser)}
}

func (s *sessionStore) issue(email string) (string, mockUser) {
	user := mockUser{
		ID:    "mock-" + strings.SplitN(email, "@", 2)[0],
		Email: email,
	}
	token := fmt.Sprintf("mock-token-%s-%d", user.ID, time.Now().UnixNano())

	s.mu.Lock()
	s.tokens[token] = user
	s.mu.Unlock()
	return token, user
}

func (s *sessionStore) lookup(token string) (mockUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	return u, ok
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sessions := newSessionStore()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /otp", otpHandler(logger))
	mux.HandleFunc("POST /verify", verifyHandler(logger, sessions))
	mux.HandleFunc("GET /user", userHandler(sessions))
	mux.HandleFunc("GET /search", nominatimHandler())
	mux.HandleFunc("POST /api/interpreter", overpassHandler())

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock provider server", "addr", addr, "code", fixedCode)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(body)
}

func otpHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.Email, "@") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email"})
			return
		}

		logger.Info("otp requested", "email", body.Email, "code", fixedCode)
		writeJSON(w, http.StatusOK, map[string]string{})
	}
}

func verifyHandler(logger *slog.Logger, sessions *sessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type  string `json:"type"`
			Email string `json:"email"`
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
			return
		}
		if body.Token != fixedCode {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid code"})
			return
		}

		token, user := sessions.issue(body.Email)
		logger.Info("session issued", "email", body.Email, "user_id", user.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"expires_in":   3600,
			"user":         user,
		})
	}
}

func userHandler(sessions *sessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		user, ok := sessions.lookup(token)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// nominatimHandler answers every address query with a fixed point in
// central Buenos Aires. Coordinates are strings, as Nominatim returns them.
func nominatimHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"lat": "-34.6037", "lon": "-58.3816"},
		})
	}
}

// overpassHandler answers every around-query with two canned supermarkets,
// one of them unnamed to exercise the fallback label.
func overpassHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"elements": []map[string]any{
				{
					"lat":  -34.6030,
					"lon":  -58.3820,
					"tags": map[string]string{"name": "Supermercado Central", "shop": "supermarket"},
				},
				{
					"lat":  -34.6045,
					"lon":  -58.3810,
					"tags": map[string]string{"shop": "supermarket"},
				},
			},
		})
	}
}
