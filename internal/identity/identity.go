// Package identity identifies the local node's user and how a call reached
// the service.
package identity

import "context"

type apiCallerKey struct{}

// Local is the identity of the user operating this node.
type Local struct {
	fingerprint string
}

// NewLocal creates the identity for a node key fingerprint.
func NewLocal(fingerprint string) *Local {
	return &Local{fingerprint: fingerprint}
}

// Fingerprint is the owner fingerprint the node signs its offers with.
func (l *Local) Fingerprint() string { return l.fingerprint }

// IsAPICaller reports whether ctx belongs to a call that came in through
// the authenticated API.
func (l *Local) IsAPICaller(ctx context.Context) bool {
	return IsAPICaller(ctx)
}

// WithAPICaller marks ctx as an API call.
func WithAPICaller(ctx context.Context) context.Context {
	return context.WithValue(ctx, apiCallerKey{}, true)
}

// IsAPICaller reads the mark set by WithAPICaller.
func IsAPICaller(ctx context.Context) bool {
	v, _ := ctx.Value(apiCallerKey{}).(bool)
	return v
}
