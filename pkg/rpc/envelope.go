// pkg/rpc/envelope.go

// Package rpc is a JSON-RPC-over-HTTP dispatch layer: one POST endpoint
// that looks up a registered method by name, runs an authorization gate,
// invokes the handler with positionally bound parameters, and returns a
// uniform success/error envelope, plus a discovery endpoint listing the
// registered method names.
package rpc

import "encoding/json"

// Call is the decoded wire request for a single RPC invocation.
// Method and Params stay raw until the dispatcher validates their shape;
// the wire may carry anything and the error taxonomy depends on what it was.
type Call struct {
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
	Version *int            `json:"version,omitempty"`
}

// Response is the uniform envelope returned for every dispatch.
// Exactly one of Data/Error is populated. Status is the HTTP-style code
// mirrored onto the transport when status propagation is enabled; it is
// never serialized into the body.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"-"`
}

func ok(data any) Response {
	return Response{Success: true, Data: data, Status: 200}
}

func fail(status int, msg string) Response {
	return Response{Success: false, Error: msg, Status: status}
}

// Claims is the authorization context produced by the Gate and handed to
// every handler. Values are the decoded identity/role claims for the call.
type Claims map[string]any
