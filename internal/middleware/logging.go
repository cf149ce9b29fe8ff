package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request and turns handler panics into 500s
func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "panic": p}).Error("Handler panicked")
					http.Error(rec, "Internal server error", http.StatusInternalServerError)
				}
				logger.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   rec.status,
					"duration": time.Since(start),
				}).Info("Handled request")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
