package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/transport/httpx"
)

// serve mounts d on a fresh router and returns the app handler.
func serve(d *Dispatcher) http.Handler {
	r := httpx.NewChi()
	d.Mount(r, "/rpc")
	return r.Mux()
}

func post(t *testing.T, app http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestDispatchSuccess(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("add", func(a, b int) int { return a + b }))

	rec := post(t, serve(d), `{"method":"add","params":[2,3]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, float64(5), out["data"])
	_, hasError := out["error"]
	assert.False(t, hasError)
}

func TestMissingMethod(t *testing.T) {
	d := New(WithStatusPropagation(true))
	app := serve(d)

	for _, body := range []string{
		`{"params":[1]}`,
		`{"method":null,"params":[1]}`,
		`{"method":""}`,
		`{"method":0}`,
		`{"method":false}`,
	} {
		rec := post(t, app, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
		out := decode(t, rec)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "method and params required", out["error"])
	}
}

func TestMethodNotAString(t *testing.T) {
	d := New(WithStatusPropagation(true))
	app := serve(d)

	for _, body := range []string{
		`{"method":42}`,
		`{"method":true}`,
		`{"method":{"a":1}}`,
		`{"method":[1,2]}`,
	} {
		rec := post(t, app, body)
		require.Equal(t, http.StatusNotFound, rec.Code, "body: %s", body)
		assert.Equal(t, "RPC function doesn't exist", decode(t, rec)["error"])
	}
}

func TestParamsNotAList(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("noop", func() {}))
	app := serve(d)

	for _, body := range []string{
		`{"method":"noop","params":{"a":1}}`,
		`{"method":"noop","params":"str"}`,
		`{"method":"noop","params":42}`,
	} {
		rec := post(t, app, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
		assert.Equal(t, "params should be a list", decode(t, rec)["error"])
	}
}

func TestParamsNullOrAbsent(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("noop", func() string { return "ok" }))
	app := serve(d)

	for _, body := range []string{
		`{"method":"noop"}`,
		`{"method":"noop","params":null}`,
		`{"method":"noop","params":[]}`,
	} {
		rec := post(t, app, body)
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", body)
		assert.Equal(t, "ok", decode(t, rec)["data"])
	}
}

func TestUnknownMethod(t *testing.T) {
	d := New(WithStatusPropagation(true))
	rec := post(t, serve(d), `{"method":"nope","params":[]}`)

	// 400 rather than 404 on this path is long-standing wire behavior.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "nope")
}

func TestGateRejection(t *testing.T) {
	calls := 0
	deny := func(_ *http.Request) (Claims, bool) { return nil, false }

	d := New(WithStatusPropagation(true), WithGate(deny))
	require.NoError(t, d.Register("secret", func() string { calls++; return "hidden" }))

	rec := post(t, serve(d), `{"method":"secret","params":[]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "authorization failed", decode(t, rec)["error"])
	assert.Zero(t, calls, "handler must never run after gate rejection")
}

func TestGateClaimsReachHandler(t *testing.T) {
	gate := func(_ *http.Request) (Claims, bool) {
		return Claims{"uid": "amal"}, true
	}
	d := New(WithStatusPropagation(true), WithGate(gate))
	require.NoError(t, d.Register("whoami", func(auth Claims) string {
		uid, _ := auth["uid"].(string)
		return uid
	}))

	rec := post(t, serve(d), `{"method":"whoami","params":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amal", decode(t, rec)["data"])
}

func TestFaultWithRenderer(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("transfer", func() error {
		return NewFault("funds.low", map[string]string{"needed": "50"}, 422)
	}))
	d.RenderFault("funds.low", func(p map[string]string) string {
		return "insufficient funds, need " + p["needed"]
	})

	rec := post(t, serve(d), `{"method":"transfer","params":[]}`)
	require.Equal(t, 422, rec.Code)
	assert.Equal(t, "insufficient funds, need 50", decode(t, rec)["error"])
}

func TestFaultWithoutRenderer(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("transfer", func() error {
		return NewFault("funds.low", map[string]string{"needed": "50"}, 422)
	}))

	rec := post(t, serve(d), `{"method":"transfer","params":[]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "operation failed", decode(t, rec)["error"])
	// The label and parameters must never leak.
	assert.NotContains(t, rec.Body.String(), "funds.low")
	assert.NotContains(t, rec.Body.String(), "50")
}

func TestUnstructuredFailureStaysGeneric(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("boom", func() error {
		return errors.New("pq: connection refused on 10.0.0.5")
	}))

	rec := post(t, serve(d), `{"method":"boom","params":[]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "operation failed", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestHandlerPanicStaysGeneric(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("panics", func() { panic("index out of range") }))

	rec := post(t, serve(d), `{"method":"panics","params":[]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "operation failed", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "index out of range")
}

func TestReRegistrationOverwrites(t *testing.T) {
	d := New(WithStatusPropagation(true))
	require.NoError(t, d.Register("greet", func() string { return "first" }))
	require.NoError(t, d.Register("greet", func() string { return "second" }))

	rec := post(t, serve(d), `{"method":"greet","params":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", decode(t, rec)["data"])
}

func TestInvalidJSONBody(t *testing.T) {
	d := New(WithStatusPropagation(true))
	app := serve(d)

	for _, body := range []string{"", "{bad", "[1,2"} {
		rec := post(t, app, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %q", body)
		assert.Equal(t, "Invalid JSON", decode(t, rec)["error"])
	}
}

func TestVersionNegotiation(t *testing.T) {
	d := New(WithVersion(3))
	require.NoError(t, d.Register("noop", func() string { return "ok" }))
	app := serve(d)

	rec := post(t, app, `{"method":"noop","params":[],"version":2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "3")

	rec = post(t, app, `{"method":"noop","params":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, app, `{"method":"noop","params":[],"version":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["data"])
}

func TestStatusEmbeddedWhenPropagationOff(t *testing.T) {
	d := New() // default: always 200, error embedded in the body
	rec := post(t, serve(d), `{"method":"nope","params":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "nope")
}

func TestDiscover(t *testing.T) {
	d := New()
	require.NoError(t, d.Register("alpha", func() {}))
	require.NoError(t, d.Register("beta", func() {}))
	require.NoError(t, d.Register("gamma", func() {}))
	require.NoError(t, d.Register("beta", func() {})) // overwrite keeps position

	req := httptest.NewRequest(http.MethodGet, "/rpc/discover", nil)
	rec := httptest.NewRecorder()
	serve(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestCookiesVisibleToGate(t *testing.T) {
	var seen map[string]string
	gate := func(r *http.Request) (Claims, bool) {
		seen = CookiesFromContext(r.Context())
		return Claims{}, true
	}
	d := New(WithGate(gate))
	require.NoError(t, d.Register("noop", func() {}))

	req := httptest.NewRequest(http.MethodPost, "/rpc/call", strings.NewReader(`{"method":"noop"}`))
	req.Header.Set("Cookie", "sid=abc; token=t%20v")
	rec := httptest.NewRecorder()
	serve(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"sid": "abc", "token": "t v"}, seen)
}
