// middleware/auth/gate.go
package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/manifest"
	"github.com/Hussein-L-AlMadhachi/Enders-Sync/pkg/rpc"
)

// Verifier turns the configured assertion cookie into an authorization
// context. It implements the dispatcher's Gate contract: reject the call
// or hand back the decoded claims.
type Verifier struct {
	cookieName string
	issuer     string
	audience   string
	leeway     time.Duration
	log        *zap.Logger

	// exactly one of these is set
	secret []byte
	pubKey *rsa.PublicKey
}

// NewVerifier builds a Verifier from the manifest's auth section.
// Mode "jwt" requires either an HS256 shared secret or an RS256 PEM
// public key file; Validate enforces the exclusivity.
func NewVerifier(cfg manifest.Auth, log *zap.Logger) (*Verifier, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := &Verifier{
		cookieName: cfg.CookieName,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		leeway:     time.Duration(cfg.LeewaySeconds) * time.Second,
		log:        log,
	}
	switch {
	case cfg.HS256Secret != "":
		v.secret = []byte(cfg.HS256Secret)
	case cfg.PublicKeyFile != "":
		pub, err := loadRSAPublicKey(cfg.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		v.pubKey = pub
	default:
		return nil, errors.New("auth: no verification key configured")
	}
	return v, nil
}

// Gate adapts the verifier to the dispatcher's predicate shape.
func (v *Verifier) Gate() rpc.Gate {
	return func(r *http.Request) (rpc.Claims, bool) {
		raw := rpc.CookiesFromContext(r.Context())[v.cookieName]
		if raw == "" {
			// Host did not run the cookie middleware; read the header.
			if c, err := r.Cookie(v.cookieName); err == nil {
				raw = c.Value
			}
		}
		if raw == "" {
			return nil, false
		}
		claims, err := v.verify(raw)
		if err != nil {
			v.log.Warn("assertion rejected", zap.Error(err))
			return nil, false
		}
		return claims, true
	}
}

type assertionClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid"`
	SID  string `json:"sid"`
	Org  string `json:"org"`
	Role string `json:"role"`
}

func (v *Verifier) verify(raw string) (rpc.Claims, error) {
	method := "HS256"
	if v.pubKey != nil {
		method = "RS256"
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	)

	var claims assertionClaims
	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if v.pubKey != nil {
			return v.pubKey, nil
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid assertion")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("bad issuer")
	}
	if v.audience != "" {
		found := false
		for _, a := range claims.Audience {
			if a == v.audience {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New("bad audience")
		}
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, errors.New("missing uid")
	}

	out := rpc.Claims{"uid": uid}
	if claims.Role != "" {
		out["role"] = claims.Role
	}
	if claims.SID != "" {
		out["sid"] = claims.SID
	}
	if claims.Org != "" {
		out["org"] = claims.Org
	}
	return out, nil
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("auth: no PEM block in " + path)
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rk, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("auth: PEM is not an RSA public key")
	}
	return rk, nil
}
