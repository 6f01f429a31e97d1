// cmd/endersd/main.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/rpc"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/serverfx"
)

func main() {
	fx.New(
		serverfx.Module(
			serverfx.WithService("endersd"),
			serverfx.WithManifestEnv("ENDERS_MANIFEST"),
			serverfx.WithDefaultManifest("manifest.toml"),
		),
		fx.Invoke(registerMethods),
	).Run()
}

// registerMethods runs during setup, before the server accepts traffic.
func registerMethods(d *rpc.Dispatcher) error {
	if err := d.Register("echo", Echo); err != nil {
		return err
	}
	if err := d.Register("time.now", Now); err != nil {
		return err
	}
	if err := d.Register("whoami", WhoAmI); err != nil {
		return err
	}

	d.RenderFault("echo.empty", func(p map[string]string) string {
		return "nothing to echo back"
	})
	return nil
}

// Echo returns its argument, or a labeled fault when it is empty.
func Echo(msg string) (string, error) {
	if msg == "" {
		return "", rpc.NewFault("echo.empty", nil, 422)
	}
	return msg, nil
}

// Now reports the server time in the requested layout (RFC3339 default).
func Now(ctx context.Context, layout string) (string, error) {
	if layout == "" {
		layout = time.RFC3339
	}
	return time.Now().UTC().Format(layout), nil
}

// WhoAmI surfaces the caller's authorization context.
func WhoAmI(auth rpc.Claims) (string, error) {
	uid, ok := auth["uid"].(string)
	if !ok || uid == "" {
		return "anonymous", nil
	}
	if role, ok := auth["role"].(string); ok && role != "" {
		return fmt.Sprintf("%s (%s)", uid, role), nil
	}
	return uid, nil
}
