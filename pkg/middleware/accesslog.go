package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// AccessLog writes one line per request. A second WriteHeader on the same
// response is dropped and reported.
func AccessLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, log: log, path: r.URL.Path}
			next.ServeHTTP(sw, r)
			code := sw.Status()
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", code,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", RequestIDFrom(r.Context()),
			}
			if code >= 500 {
				log.Warnw("request", fields...)
				return
			}
			log.Debugw("request", fields...)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	log   *zap.SugaredLogger
	path  string
	wrote int32
	code  int
}

func (s *statusWriter) WriteHeader(code int) {
	if atomic.CompareAndSwapInt32(&s.wrote, 0, 1) {
		s.code = code
		s.ResponseWriter.WriteHeader(code)
		return
	}
	s.log.Warnw("double WriteHeader", "path", s.path, "first", s.code, "second", code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if atomic.LoadInt32(&s.wrote) == 0 {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

// Status is the code sent, or 200 when the handler wrote nothing.
func (s *statusWriter) Status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}
