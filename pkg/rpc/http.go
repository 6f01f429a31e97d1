// pkg/rpc/http.go
package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/codec"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/transport/httpx"
	"go.uber.org/zap"
)

// Mount binds the call and discover endpoints onto the host router under
// base, and installs the cookie-parsing middleware exactly once per host
// router instance. Chi requires middleware before routes, so Mount must
// run before the host adds its own handlers to the same router.
func (d *Dispatcher) Mount(r httpx.Router, base string) {
	d.mu.Lock()
	if _, done := d.installed[r]; !done {
		r.Use(withCookies)
		d.installed[r] = struct{}{}
	}
	d.mu.Unlock()

	r.Post(path.Join("/", base, "call"), http.HandlerFunc(d.handleCall))
	r.Get(path.Join("/", base, "discover"), http.HandlerFunc(d.handleDiscover))
}

// handleCall is the framework-facing wrapper around Dispatch: body
// decoding and version negotiation happen here, before the pipeline, and
// any internal defect still ends in a generic 500 body.
func (d *Dispatcher) handleCall(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("call endpoint panic", zap.Any("panic", rec))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	var call Call
	if len(body) == 0 || json.Unmarshal(body, &call) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	if d.version != 0 {
		if call.Version == nil || *call.Version != d.version {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("minimum supported client version is %d", d.version),
			})
			return
		}
	}

	resp := d.Dispatch(r, call)
	status := http.StatusOK
	if d.propagate {
		status = resp.Status
	}
	writeJSON(w, status, resp)
}

// handleDiscover lists the registered method names in stable order. It is
// deliberately ungated; wrap the route if method names are sensitive.
func (d *Dispatcher) handleDiscover(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.methods.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := codec.JSON.Marshal(v)
	if err != nil {
		http.Error(w, "operation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.JSON.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
