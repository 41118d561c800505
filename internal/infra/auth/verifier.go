package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoKeys = errors.New("neither a JWKS url nor a secret is configured")

type Identity struct {
	Subject string
}

// Verifier checks bearer tokens against a JWKS endpoint, or an HMAC secret when no
// endpoint is configured.
type Verifier struct {
	keyfunc jwt.Keyfunc
	options []jwt.ParserOption
}

func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	v := &Verifier{options: []jwt.ParserOption{jwt.WithLeeway(cfg.Leeway), jwt.WithExpirationRequired()}}
	if cfg.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(cfg.Audience))
	}

	switch {
	case cfg.JWKSURL != "":
		timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		jwks, err := keyfunc.NewDefaultCtx(timeoutCtx, []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("failed to get JWKS: %v", err)
		}
		v.keyfunc = jwks.Keyfunc
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		v.keyfunc = func(*jwt.Token) (any, error) { return secret, nil }
		v.options = append(v.options, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	default:
		return nil, ErrNoKeys
	}
	return v, nil
}

func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, v.options...); err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %v", err)
	}
	return &Identity{Subject: claims.Subject}, nil
}
