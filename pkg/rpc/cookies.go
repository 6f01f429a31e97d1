// pkg/rpc/cookies.go
package rpc

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ParseCookies parses a raw Cookie header into a name -> value map.
// Segments split on ';', each on the first '='; names are
// whitespace-trimmed and values percent-decoded. Segments without an '='
// are skipped. An absent header yields an empty map, not an error.
func ParseCookies(header string) map[string]string {
	out := make(map[string]string)
	if header == "" {
		return out
	}
	for _, seg := range strings.Split(header, ";") {
		eq := strings.Index(seg, "=")
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(seg[:eq])
		if name == "" {
			continue
		}
		val := seg[eq+1:]
		if dec, err := url.QueryUnescape(val); err == nil {
			val = dec
		}
		out[name] = val
	}
	return out
}

type cookieCtxKey struct{}

// CookiesFromContext returns the cookie map stashed by the dispatcher's
// cookie middleware, for gates that work from cookies rather than the raw
// request. Never nil.
func CookiesFromContext(ctx context.Context) map[string]string {
	if m, ok := ctx.Value(cookieCtxKey{}).(map[string]string); ok {
		return m
	}
	return map[string]string{}
}

// withCookies parses the Cookie header once per request and exposes the
// result through the context. Mount installs it exactly once per
// Dispatcher, guarded by the dispatcher's install flag.
func withCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := ParseCookies(r.Header.Get("Cookie"))
		ctx := context.WithValue(r.Context(), cookieCtxKey{}, cookies)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
