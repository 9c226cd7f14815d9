package socket

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultPath is the sub-path the chat server serves its socket on.
const DefaultPath = "/api/socket/io"

// ErrInvalidEndpoint is returned when the base URL cannot be turned into a websocket URL.
var ErrInvalidEndpoint = errors.New("invalid socket endpoint")

// Options are the fixed transport options applied to the base URL.
type Options struct {
	Path             string // Sub-path appended to the base URL
	AddTrailingSlash bool   // Keep (or add) a trailing slash on the final path
}

// DefaultOptions returns the options the app mounts with.
func DefaultOptions() Options {
	return Options{Path: DefaultPath}
}

// EndpointURL joins base and opts.Path into a websocket URL. http and https
// bases become ws and wss; ws and wss bases are kept as they are.
func EndpointURL(base string, opts Options) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidEndpoint, u.Scheme, base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, base)
	}

	p := strings.TrimRight(u.Path, "/")
	if sub := strings.Trim(opts.Path, "/"); sub != "" {
		p += "/" + sub
	}
	if opts.AddTrailingSlash {
		p += "/"
	}
	u.Path = p
	u.RawPath = ""

	return u.String(), nil
}
