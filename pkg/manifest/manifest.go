// manifest/manifest.go
package manifest

import (
	"fmt"
	"strings"
)

/* ===========================
   Top-level config
   =========================== */

type Config struct {
	Server Server `toml:"server"`
	Auth   Auth   `toml:"auth"`
	Log    Log    `toml:"log"`
}

/* ===========================
   HTTP server / RPC surface
   =========================== */

type Server struct {
	Listen          string `toml:"listen"`           // host:port, default ":4000"
	BasePath        string `toml:"base_path"`        // mount point for call/discover, default "/rpc"
	APIVersion      int    `toml:"api_version"`      // 0 disables version checking
	PropagateStatus bool   `toml:"propagate_status"` // mirror envelope status onto HTTP status
	TLSCert         string `toml:"tls_cert"`
	TLSKey          string `toml:"tls_key"`
}

/* ===========================
   Authorization gate
   =========================== */

type Auth struct {
	Mode          string `toml:"mode"`            // "none" | "jwt"
	CookieName    string `toml:"cookie_name"`     // default "assert"
	HS256Secret   string `toml:"hs256_secret"`    // shared secret (HS256)
	PublicKeyFile string `toml:"public_key_file"` // PEM RSA public key (RS256)
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
	LeewaySeconds int    `toml:"leeway_seconds"` // default 60
}

/* ===========================
   Logging
   =========================== */

type Log struct {
	File         string `toml:"file"`           // rolling log file name, default "endersd.log"
	BodyLogLimit int    `toml:"body_log_limit"` // max request body bytes logged, default 2048
}

// Validate normalizes defaults and rejects configurations the server
// cannot run with.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		c.Server.Listen = ":4000"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/rpc"
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with '/': %q", c.Server.BasePath)
	}
	if c.Server.APIVersion < 0 {
		return fmt.Errorf("server.api_version must not be negative")
	}

	switch c.Auth.Mode {
	case "", "none":
		c.Auth.Mode = "none"
	case "jwt":
		if c.Auth.HS256Secret == "" && c.Auth.PublicKeyFile == "" {
			return fmt.Errorf("auth.mode jwt requires hs256_secret or public_key_file")
		}
		if c.Auth.HS256Secret != "" && c.Auth.PublicKeyFile != "" {
			return fmt.Errorf("auth: hs256_secret and public_key_file are mutually exclusive")
		}
	default:
		return fmt.Errorf("auth.mode must be \"none\" or \"jwt\", got %q", c.Auth.Mode)
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "assert"
	}
	if c.Auth.LeewaySeconds < 0 {
		return fmt.Errorf("auth.leeway_seconds must not be negative")
	}
	if c.Auth.LeewaySeconds == 0 {
		c.Auth.LeewaySeconds = 60
	}

	if c.Log.File == "" {
		c.Log.File = "endersd.log"
	}
	if c.Log.BodyLogLimit <= 0 {
		c.Log.BodyLogLimit = 2048
	}
	return nil
}
