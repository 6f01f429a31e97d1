// middleware/metrics/middleware.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/rpc"
)

// Collect produces the HTTP middleware that records the request counters.
func Collect() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				// Skip self-scrape
				if r.URL.Path == "/metrics" {
					return
				}
				code := strconv.Itoa(ww.Status())
				totalHttpRequests.WithLabelValues(code, r.Method).Inc()
				totalHttpRequestsToUri.WithLabelValues(code, r.URL.Path, r.Method).Inc()
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// DispatchObserver feeds per-call dispatch outcomes into the rpc
// collectors; wire it via rpc.WithObserver.
func DispatchObserver() rpc.Observer {
	return func(method string, status int, elapsed time.Duration) {
		if method == "" {
			method = "unknown"
		}
		totalRPCCalls.WithLabelValues(method, strconv.Itoa(status)).Inc()
		dispatchSeconds.Observe(elapsed.Seconds())
	}
}
