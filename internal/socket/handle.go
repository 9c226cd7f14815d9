package socket

import "context"

// Handle is the narrow view of a real-time connection the provider needs.
type Handle interface {
	// OnConnect registers fn to run each time the connection is established.
	OnConnect(fn func())

	// OnDisconnect registers fn to run each time an established connection is lost.
	OnDisconnect(fn func())

	// Disconnect tears the connection down. Safe to call on a handle that never connected.
	Disconnect() error
}

// Opener is implemented by handles that start connecting only when asked.
// The provider opens such handles after its observers are registered.
type Opener interface {
	Open(ctx context.Context) error
}

// Factory builds a handle for the given endpoint. It must not block on the network.
type Factory func(baseURL string, opts Options) (Handle, error)
