// internal/config/database.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// DSN renders the libpq keyword/value connection string. Values containing
// spaces or quotes are single-quoted.
func (d *DatabaseConfig) DSN() string {
	return d.dsn(d.Password)
}

// RedactedDSN is DSN with the password masked, for logs.
func (d *DatabaseConfig) RedactedDSN() string {
	if d.Password == "" {
		return d.dsn("")
	}
	return d.dsn("xxxxx")
}

func (d *DatabaseConfig) dsn(password string) string {
	pairs := []struct{ key, value string }{
		{"host", d.Host},
		{"port", d.Port},
		{"user", d.User},
		{"password", password},
		{"dbname", d.Database},
		{"sslmode", d.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", p.key, quoteDSNValue(p.value)))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ConnMaxLifetime converts the configured lifetime in seconds. Zero keeps
// connections open indefinitely.
func (d *DatabaseConfig) ConnMaxLifetime() time.Duration {
	if d.MaxLifetime <= 0 {
		return 0
	}
	return time.Duration(d.MaxLifetime) * time.Second
}
