package config

import (
	"log"
	"strings"
)

// Missing lists the required settings that are empty, in a stable order.
func (c Config) Missing() []string {
	var out []string
	if c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL")
	}
	if c.RedisAddr == "" {
		out = append(out, "REDIS_ADDR")
	}
	if len(c.JWTAccessSecret) == 0 {
		out = append(out, "JWT_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		out = append(out, "JWT_REFRESH_SECRET")
	}
	return out
}

// MustComplete exits when any required setting is missing.
func MustComplete(c Config) {
	if missing := c.Missing(); len(missing) > 0 {
		log.Fatalf("missing required env %s", strings.Join(missing, ", "))
	}
}
