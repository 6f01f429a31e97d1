// pkg/rpc/registry.go
package rpc

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// ErrInvalidName is returned when a registration carries no usable method
// name: the explicit name is empty and none can be derived from the
// function itself. This is a setup-time failure, never a per-request one.
var ErrInvalidName = errors.New("rpc: method name required")

// Registry maps method names to handlers. It is owned by one Dispatcher
// instance; independent registries may coexist in the same process.
// Registration normally happens during application setup, but the lock
// keeps late registration safe against in-flight dispatches.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Handler
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Handler)}
}

// Register inserts fn under name. An empty name falls back to the
// function's own identifier. Registering an existing name overwrites the
// previous handler; its position in List is kept.
func (reg *Registry) Register(name string, fn any) error {
	h, err := adaptFunc(fn)
	if err != nil {
		return err
	}
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return ErrInvalidName
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.methods[name]; !exists {
		reg.order = append(reg.order, name)
	}
	reg.methods[name] = h
	return nil
}

// Resolve is a pure lookup.
func (reg *Registry) Resolve(name string) (Handler, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	h, ok := reg.methods[name]
	return h, ok
}

// List returns the registered names in insertion order. The order is
// stable for the life of the process so discovery responses diff cleanly.
func (reg *Registry) List() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// funcName derives a registration name from the function symbol, e.g.
// "github.com/acme/app/handlers.Echo" -> "Echo". Method values carry a
// "-fm" suffix which is stripped.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	// Anonymous functions come out as "func1" etc.; not a usable name.
	if strings.HasPrefix(name, "func") {
		if _, err := fmt.Sscanf(name, "func%d", new(int)); err == nil {
			return ""
		}
	}
	return name
}
