// middleware/logger/module.go
package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/manifest"
)

func ProvideLogger(cfg manifest.Config) *zap.Logger {
	return NewLog(cfg.Log.File)
}

func ProvideLoggerMiddleware(cfg manifest.Config) *Middleware {
	return NewMiddleware(NewLog("http-access.log"), cfg.Log.BodyLogLimit)
}

var Module = fx.Options(
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideLoggerMiddleware),
)
