package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSocketPath         = "/api/socket/io"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 25 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultSocketBufferSize   = 256
	DefaultSessionCookie      = "__session"
	DefaultSignInURL          = "/sign-in"
	DefaultIdentityTimeout    = 10 * time.Second
	DefaultIdentityMaxRetries = 3
	DefaultDriver             = DriverPostgres
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultSQLitePath         = "huddle.db"
	DefaultHTTPPort           = 3000
	DefaultReadTimeout        = 15 * time.Second
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultLogLevel           = "info"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func (c *AppConfig) applyDefaults() {
	// Socket defaults
	if c.Socket.Path == "" {
		c.Socket.Path = DefaultSocketPath
	}
	if c.Socket.ReconnectBaseDelay == 0 {
		c.Socket.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Socket.ReconnectMaxDelay == 0 {
		c.Socket.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Socket.HandshakeTimeout == 0 {
		c.Socket.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Socket.PingInterval == 0 {
		c.Socket.PingInterval = DefaultPingInterval
	}
	if c.Socket.PingTimeout == 0 {
		c.Socket.PingTimeout = DefaultPingTimeout
	}
	if c.Socket.WriteTimeout == 0 {
		c.Socket.WriteTimeout = DefaultWriteTimeout
	}
	if c.Socket.BufferSize == 0 {
		c.Socket.BufferSize = DefaultSocketBufferSize
	}

	// Identity defaults
	if c.Identity.SessionCookie == "" {
		c.Identity.SessionCookie = DefaultSessionCookie
	}
	if c.Identity.SignInURL == "" {
		c.Identity.SignInURL = DefaultSignInURL
	}
	if c.Identity.Timeout == 0 {
		c.Identity.Timeout = DefaultIdentityTimeout
	}
	if c.Identity.MaxRetries == 0 {
		c.Identity.MaxRetries = DefaultIdentityMaxRetries
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
