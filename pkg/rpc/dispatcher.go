// pkg/rpc/dispatcher.go
package rpc

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gate is the authorization predicate run once per call, before the
// handler. It receives the raw inbound request (parsed cookies are
// available via CookiesFromContext) and either rejects the call or
// produces the authorization context handed to the handler. Gates may do
// I/O; they must not touch the registries.
type Gate func(r *http.Request) (Claims, bool)

// AllowAll authorizes every call with an empty context. It is the default
// gate when the host configures none.
func AllowAll(_ *http.Request) (Claims, bool) { return Claims{}, true }

// Observer receives the outcome of every dispatch, for metrics wiring.
type Observer func(method string, status int, elapsed time.Duration)

// Dispatcher owns the method registry, the fault renderer set and the
// gate, and turns one inbound call into one Response. Independent
// dispatchers can coexist in a process; nothing here is package-global.
type Dispatcher struct {
	methods   *Registry
	renderers *RendererSet
	gate      Gate
	log       *zap.Logger
	observe   Observer

	version   int
	propagate bool

	mu        sync.Mutex
	installed map[any]struct{}
}

type Option func(*Dispatcher)

// WithGate replaces the default allow-all authorization gate.
func WithGate(g Gate) Option {
	return func(d *Dispatcher) {
		if g != nil {
			d.gate = g
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithVersion enables request-level API version checking: a call whose
// version field differs from v is rejected before dispatch. It also turns
// on status propagation, matching clients that read HTTP status codes.
func WithVersion(v int) Option {
	return func(d *Dispatcher) {
		d.version = v
		d.propagate = true
	}
}

// WithStatusPropagation controls whether the envelope's status code is
// mirrored onto the HTTP response, or every response is a 200 with the
// error embedded in the body.
func WithStatusPropagation(on bool) Option {
	return func(d *Dispatcher) { d.propagate = on }
}

// WithObserver installs a dispatch outcome hook, e.g. metrics counters.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observe = o }
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		methods:   NewRegistry(),
		renderers: NewRendererSet(),
		gate:      AllowAll,
		log:       zap.NewNop(),
		installed: make(map[any]struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register adds a method to this dispatcher's registry. See
// Registry.Register for the naming and overwrite contract.
func (d *Dispatcher) Register(name string, fn any) error {
	return d.methods.Register(name, fn)
}

// MustRegister panics on registration failure; registration errors are
// setup-time defects.
func (d *Dispatcher) MustRegister(name string, fn any) {
	if err := d.methods.Register(name, fn); err != nil {
		panic(err)
	}
}

// RenderFault installs the renderer for a fault label.
func (d *Dispatcher) RenderFault(label string, fn Renderer) {
	d.renderers.Register(label, fn)
}

// Methods returns the registered method names in insertion order.
func (d *Dispatcher) Methods() []string { return d.methods.List() }

// Dispatch runs the full pipeline for one decoded call: shape validation,
// registry resolution, authorization, invocation, failure classification.
// Every failure mode ends in an envelope; nothing escapes as an error.
func (d *Dispatcher) Dispatch(r *http.Request, call Call) (resp Response) {
	start := time.Now()
	method := ""

	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("dispatch panic",
				zap.String("method", method),
				zap.Any("panic", rec),
				zap.String("callId", uuid.NewString()),
			)
			resp = fail(http.StatusInternalServerError, "operation failed")
		}
		if d.observe != nil {
			d.observe(method, resp.Status, time.Since(start))
		}
	}()

	// 1. Shape validation, short-circuit on first failure.
	name, shapeErr := methodName(call.Method)
	if shapeErr != nil {
		return *shapeErr
	}
	method = name

	params, shapeErr := paramList(call.Params)
	if shapeErr != nil {
		return *shapeErr
	}

	// 2. Registry resolution. The 400 here (not 404) is long-standing
	// client-visible behavior; see DESIGN.md.
	h, found := d.methods.Resolve(name)
	if !found {
		return fail(http.StatusBadRequest, "RPC function '"+name+"' not found")
	}

	// 3. Authorization.
	auth, authorized := d.gate(r)
	if !authorized {
		return fail(http.StatusForbidden, "authorization failed")
	}

	// 4. Invocation.
	result, err := h(r.Context(), auth, params)
	if err != nil {
		return d.classify(name, err)
	}

	// 5. Success envelope.
	return ok(result)
}

// classify maps a handler failure to an envelope. Labeled faults render
// through their registered renderer and keep their own status; everything
// else is logged server-side and surfaced as a generic 500 so internal
// detail never reaches the caller.
func (d *Dispatcher) classify(method string, err error) Response {
	if f, isFault := err.(*Fault); isFault {
		msg, rendered := d.renderers.Render(f.Label, f.Params)
		if !rendered {
			d.log.Warn("fault label has no renderer",
				zap.String("method", method),
				zap.String("label", f.Label),
			)
			return fail(http.StatusInternalServerError, "operation failed")
		}
		return fail(f.Status, msg)
	}

	d.log.Error("handler failed",
		zap.String("method", method),
		zap.Error(err),
		zap.String("callId", uuid.NewString()),
	)
	return fail(http.StatusInternalServerError, "operation failed")
}

// methodName validates the method field: absent or falsy -> 400, present
// but not a string -> 404. The asymmetry is part of the wire contract.
func methodName(raw json.RawMessage) (string, *Response) {
	bad := func(status int, msg string) (string, *Response) {
		r := fail(status, msg)
		return "", &r
	}

	if len(raw) == 0 {
		return bad(http.StatusBadRequest, "method and params required")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return bad(http.StatusBadRequest, "method and params required")
	}
	switch m := v.(type) {
	case nil:
		return bad(http.StatusBadRequest, "method and params required")
	case string:
		if m == "" {
			return bad(http.StatusBadRequest, "method and params required")
		}
		return m, nil
	case bool:
		if !m {
			return bad(http.StatusBadRequest, "method and params required")
		}
		return bad(http.StatusNotFound, "RPC function doesn't exist")
	case float64:
		if m == 0 {
			return bad(http.StatusBadRequest, "method and params required")
		}
		return bad(http.StatusNotFound, "RPC function doesn't exist")
	default:
		return bad(http.StatusNotFound, "RPC function doesn't exist")
	}
}

// paramList validates the optional params field: present and not an array
// -> 400. Absent or null means an empty sequence.
func paramList(raw json.RawMessage) ([]any, *Response) {
	if len(raw) == 0 {
		return nil, nil
	}
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		r := fail(http.StatusBadRequest, "params should be a list")
		return nil, &r
	}
	if probe == nil {
		return nil, nil
	}
	params, isList := probe.([]any)
	if !isList {
		r := fail(http.StatusBadRequest, "params should be a list")
		return nil, &r
	}
	return params, nil
}
