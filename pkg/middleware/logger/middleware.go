// middleware/logger/middleware.go
package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Middleware is the HTTP access logger. BodyLimit caps how many request
// body bytes may be echoed into the access log; larger or non-JSON
// bodies are redacted.
type Middleware struct {
	access    *zap.Logger
	bodyLimit int
}

func NewMiddleware(access *zap.Logger, bodyLimit int) *Middleware {
	if access == nil {
		access = zap.NewNop()
	}
	return &Middleware{access: access, bodyLimit: bodyLimit}
}

func (m *Middleware) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Read and RESTORE request body so downstream can consume it
			var body []byte
			if r.Body != nil {
				if b, err := io.ReadAll(r.Body); err == nil {
					body = b
				}
				r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}

			start := time.Now()
			defer func() {
				lat := time.Since(start)

				log := m.access.With(
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpScheme", scheme),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", lat),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)

				// Redact by default; small JSON bodies only.
				if m.shouldLogBody(r, body) {
					log.Info("", zap.ByteString("requestData", body))
				} else {
					log.Info("")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func (m *Middleware) shouldLogBody(r *http.Request, body []byte) bool {
	if len(body) == 0 || len(body) > m.bodyLimit {
		return false
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" &&
		!bytes.HasPrefix([]byte(ct), []byte("application/json;")) {
		return false
	}
	return json.Valid(body)
}
