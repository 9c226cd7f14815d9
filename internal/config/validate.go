package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *AppConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Site.URL == "" {
		return errors.New("site.url is required")
	}
	u, err := url.Parse(c.Site.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.url must be an absolute URL, got %q", c.Site.URL)
	}

	if !strings.HasPrefix(c.Socket.Path, "/") {
		return fmt.Errorf("socket.path must start with /, got %q", c.Socket.Path)
	}
	if c.Socket.ReconnectBaseDelay > c.Socket.ReconnectMaxDelay {
		return fmt.Errorf("socket.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Socket.ReconnectBaseDelay, c.Socket.ReconnectMaxDelay)
	}
	if c.Socket.BufferSize < 1 {
		return errors.New("socket.buffer_size must be >= 1")
	}

	if c.Identity.PublicKeyPath == "" {
		return errors.New("identity.public_key_path is required")
	}
	if c.Identity.APIURL == "" {
		return errors.New("identity.api_url is required")
	}
	if c.Identity.MaxRetries < 0 {
		return errors.New("identity.max_retries must be >= 0")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel converts log.level into a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
	}
	return l, nil
}
