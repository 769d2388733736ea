package swad

import "context"

type clientAddrContextKey struct{}
type requestIDContextKey struct{}

// WithClientAddr attaches the client address to ctx. Audit events and
// checker log lines carry it.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrContextKey{}, addr)
}

// WithRequestID attaches a request correlation identifier to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// ClientAddrFromContext returns the address set by [WithClientAddr].
func ClientAddrFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	addr, _ := ctx.Value(clientAddrContextKey{}).(string)
	return addr
}

// RequestIDFromContext returns the identifier set by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
