// pkg/serverfx/serverfx.go
package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/manifest"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/middleware/auth"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/middleware/logger"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/middleware/metrics"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/rpc"
	httpx "github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/transport/httpx"
)

// ---------- Options ----------

type Config struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. ENDERS_MANIFEST
	DefaultManifest string // e.g. "manifest.toml"
	ListenEnv       string // SERVER_LISTEN_ADDRESS override
}

type Option func(*Config)

func WithService(s string) Option            { return func(c *Config) { c.Service = s } }
func WithManifestEnv(k string) Option        { return func(c *Config) { c.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(c *Config) { c.DefaultManifest = path } }
func WithListenEnv(k string) Option          { return func(c *Config) { c.ListenEnv = k } }

func defaultConfig() Config {
	return Config{
		Service:         "endersd",
		ManifestEnv:     "ENDERS_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenEnv:       "SERVER_LISTEN_ADDRESS",
	}
}

// Module returns a complete Fx option set for the RPC service; add
// app-specific fx.Invoke(...) alongside to register methods and fault
// renderers before the server accepts traffic.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		fx.Provide(func() Config { return cfg }),
		fx.Provide(provideManifest),

		// Middleware modules
		auth.Module,
		logger.Module,
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),

		// Router impl + dispatcher
		fx.Provide(httpx.NewChi),
		fx.Provide(provideDispatcher),

		// App handler
		fx.Provide(fx.Annotate(
			provideRouter,
			fx.ParamTags(``, ``, ``, `name:"metrics"`, ``),
			fx.ResultTags(`name:"app"`),
		)),

		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Config ----------

func provideManifest(cfg Config) (manifest.Config, error) {
	return manifest.Load(envOr(cfg.ManifestEnv, cfg.DefaultManifest))
}

// ---------- Dispatcher ----------

func provideDispatcher(man manifest.Config, gate rpc.Gate, zl *zap.Logger) *rpc.Dispatcher {
	opts := []rpc.Option{
		rpc.WithGate(gate),
		rpc.WithLogger(zl),
		rpc.WithObserver(metrics.DispatchObserver()),
	}
	if man.Server.APIVersion != 0 {
		opts = append(opts, rpc.WithVersion(man.Server.APIVersion))
	}
	if man.Server.PropagateStatus {
		opts = append(opts, rpc.WithStatusPropagation(true))
	}
	return rpc.New(opts...)
}

// ---------- Router ----------

func provideRouter(
	man manifest.Config,
	d *rpc.Dispatcher,
	lm *logger.Middleware,
	/* name:"metrics" */ m http.Handler,
	r httpx.Router,
) http.Handler {
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	r.Use(lm.Middleware())
	r.Use(metrics.Collect())

	// Mount installs the cookie middleware, so it runs before any route
	// is added.
	d.Mount(r, man.Server.BasePath)
	r.Handle(http.MethodGet, "/metrics", m)
	return r.Mux()
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, cfg Config, man manifest.Config, d serverDeps) {
	addr := envOr(cfg.ListenEnv, man.Server.Listen)
	cert := man.Server.TLSCert
	key := man.Server.TLSKey

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", cfg.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", cfg.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", cfg.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
