package config

import "time"

// AppConfig is the root configuration for a huddle instance.
type AppConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Site     SiteConfig     `yaml:"site"`
	Socket   SocketConfig   `yaml:"socket"`
	Identity IdentityConfig `yaml:"identity"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SiteConfig holds the public site location.
type SiteConfig struct {
	URL string `yaml:"url"` // Public base URL, usually ${SITE_URL}
}

// SocketConfig holds real-time connection settings.
type SocketConfig struct {
	Path               string        `yaml:"path"`               // Protocol sub-path appended to site.url
	AddTrailingSlash   bool          `yaml:"add_trailing_slash"` // Append "/" to the endpoint path
	Reconnect          *bool         `yaml:"reconnect"`          // Transport-level reconnection (nil = enabled)
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// IdentityConfig holds identity-provider settings.
type IdentityConfig struct {
	APIURL        string        `yaml:"api_url"`
	SecretKey     string        `yaml:"secret_key"`      // Bearer key for the provider's REST API
	PublicKeyPath string        `yaml:"public_key_path"` // PEM key used to verify session tokens
	SessionCookie string        `yaml:"session_cookie"`
	SignInURL     string        `yaml:"sign_in_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver   string       `yaml:"driver"` // "postgres" or "sqlite"
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the SQLite database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds the web server settings.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ReconnectEnabled reports whether the transport should reconnect on its own.
func (s SocketConfig) ReconnectEnabled() bool {
	return s.Reconnect == nil || *s.Reconnect
}
