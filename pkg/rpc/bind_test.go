package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindTruncatesExtraParams(t *testing.T) {
	h, err := adaptFunc(func(a string) string { return a })
	require.NoError(t, err)

	out, err := h(context.Background(), Claims{}, []any{"kept", "dropped", "also dropped"})
	require.NoError(t, err)
	assert.Equal(t, "kept", out)
}

func TestBindPadsMissingParams(t *testing.T) {
	h, err := adaptFunc(func(a string, n int, b bool) []any { return []any{a, n, b} })
	require.NoError(t, err)

	out, err := h(context.Background(), Claims{}, []any{"only"})
	require.NoError(t, err)
	assert.Equal(t, []any{"only", 0, false}, out)
}

func TestBindContextAndClaimsLeadingParams(t *testing.T) {
	type probe struct {
		gotCtx    bool
		gotClaims Claims
	}
	var p probe
	h, err := adaptFunc(func(ctx context.Context, auth Claims, msg string) string {
		p.gotCtx = ctx != nil
		p.gotClaims = auth
		return msg
	})
	require.NoError(t, err)

	out, err := h(context.Background(), Claims{"uid": "u1"}, []any{"hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.True(t, p.gotCtx)
	assert.Equal(t, Claims{"uid": "u1"}, p.gotClaims)
}

func TestBindNumericConversion(t *testing.T) {
	h, err := adaptFunc(func(n int, f float32) float64 { return float64(n) + float64(f) })
	require.NoError(t, err)

	// JSON numbers decode as float64.
	out, err := h(context.Background(), Claims{}, []any{float64(2), float64(0.5)})
	require.NoError(t, err)
	assert.Equal(t, 2.5, out)
}

func TestBindStructParam(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	h, err := adaptFunc(func(p point) int { return p.X + p.Y })
	require.NoError(t, err)

	out, err := h(context.Background(), Claims{}, []any{map[string]any{"x": 3, "y": 4}})
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}

func TestBindNullParamYieldsZero(t *testing.T) {
	h, err := adaptFunc(func(s string) string { return s })
	require.NoError(t, err)

	out, err := h(context.Background(), Claims{}, []any{nil})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestBindTypeMismatchIsUnstructured(t *testing.T) {
	h, err := adaptFunc(func(n int) int { return n })
	require.NoError(t, err)

	_, err = h(context.Background(), Claims{}, []any{"not a number"})
	require.Error(t, err)
	var f *Fault
	assert.False(t, errors.As(err, &f), "bind failures are unstructured")
}

func TestReturnShapes(t *testing.T) {
	// (T, error)
	h, err := adaptFunc(func() (string, error) { return "v", nil })
	require.NoError(t, err)
	out, err := h(context.Background(), Claims{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", out)

	// error only
	h, err = adaptFunc(func() error { return errors.New("x") })
	require.NoError(t, err)
	out, err = h(context.Background(), Claims{}, nil)
	assert.Error(t, err)
	assert.Nil(t, out)

	// no returns
	h, err = adaptFunc(func() {})
	require.NoError(t, err)
	out, err = h(context.Background(), Claims{}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestVariadicRejected(t *testing.T) {
	_, err := adaptFunc(func(xs ...string) {})
	assert.Error(t, err)
}

func TestBadReturnShapeRejected(t *testing.T) {
	_, err := adaptFunc(func() (int, string) { return 0, "" })
	assert.Error(t, err)

	_, err = adaptFunc(func() (int, int, error) { return 0, 0, nil })
	assert.Error(t, err)
}
