package socket

import "context"

type accessorKey struct{}

// NewContext returns a copy of ctx carrying the provider accessor.
func NewContext(ctx context.Context, accessor func() Value) context.Context {
	return context.WithValue(ctx, accessorKey{}, accessor)
}

// FromContext returns the current snapshot from the accessor carried by ctx.
// Without a provider in scope it returns the zero Value.
func FromContext(ctx context.Context) Value {
	accessor, ok := ctx.Value(accessorKey{}).(func() Value)
	if !ok || accessor == nil {
		return Value{}
	}
	return accessor()
}
