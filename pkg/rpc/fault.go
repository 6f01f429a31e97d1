// pkg/rpc/fault.go
package rpc

import (
	"net/http"
	"sync"
)

// Fault is a labeled business failure. The label selects a registered
// renderer which formats the user-facing message from Params; Status is
// the HTTP-style code the envelope carries. A failure that is not a
// *Fault is treated as unstructured and never shown to the caller.
type Fault struct {
	Label  string
	Params map[string]string
	Status int
}

func (f *Fault) Error() string { return f.Label }

// NewFault builds a labeled failure. A zero status defaults to 500.
func NewFault(label string, params map[string]string, status int) *Fault {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Fault{Label: label, Params: params, Status: status}
}

// Renderer formats a user-facing message from a Fault's parameters.
// Renderers must be synchronous and side-effect free.
type Renderer func(params map[string]string) string

// RendererSet maps fault labels to renderers. Like the method Registry it
// is owned by one Dispatcher and populated at setup; last registration
// for a label wins.
type RendererSet struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

func NewRendererSet() *RendererSet {
	return &RendererSet{renderers: make(map[string]Renderer)}
}

// Register installs fn for label, overwriting any prior renderer.
func (rs *RendererSet) Register(label string, fn Renderer) {
	rs.mu.Lock()
	rs.renderers[label] = fn
	rs.mu.Unlock()
}

// Render looks up the renderer for label and invokes it. The second
// return reports whether a renderer was registered.
func (rs *RendererSet) Render(label string, params map[string]string) (string, bool) {
	rs.mu.RLock()
	fn, ok := rs.renderers[label]
	rs.mu.RUnlock()
	if !ok {
		return "", false
	}
	return fn(params), true
}
