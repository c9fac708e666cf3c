// Package util holds the shared loggers and HTTP middleware for the service.
package util

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger setup
var (
	InfoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
)

// LoggingMiddleware tags every request with a short ID and logs method, path
// and latency.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.New().String()[:8]
		InfoLogger.Printf("[%s] %s %s", reqID, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		InfoLogger.Printf("[%s] completed in %v", reqID, time.Since(start))
	})
}

// RecoveryMiddleware keeps a handler panic from killing the server.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				ErrorLogger.Printf("Panic recovered: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
