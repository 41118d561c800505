package auth

import (
	"time"

	"github.com/Builder-Lawyers/store-builder/pkg/env"
)

type Config struct {
	Disabled bool
	JWKSURL  string
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

func NewConfig() *Config {
	return &Config{
		Disabled: env.GetBool("AUTH_DISABLED", false),
		JWKSURL:  env.GetEnv("AUTH_JWKS_URL", ""),
		Secret:   env.GetEnv("AUTH_SECRET", ""),
		Issuer:   env.GetEnv("AUTH_ISSUER", ""),
		Audience: env.GetEnv("AUTH_AUDIENCE", ""),
		Leeway:   env.GetDuration("AUTH_LEEWAY", 10*time.Second),
	}
}
