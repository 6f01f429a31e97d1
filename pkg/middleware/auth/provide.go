// middleware/auth/provide.go
package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/manifest"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/rpc"
)

// ProvideGate yields the dispatcher's authorization gate. Mode "none"
// keeps the default allow-all behavior.
func ProvideGate(cfg manifest.Config, log *zap.Logger) (rpc.Gate, error) {
	if cfg.Auth.Mode != "jwt" {
		return rpc.AllowAll, nil
	}
	v, err := NewVerifier(cfg.Auth, log)
	if err != nil {
		return nil, err
	}
	return v.Gate(), nil
}

var Module = fx.Options(
	fx.Provide(ProvideGate),
)
