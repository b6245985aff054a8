// Package reqctx carries per-request metadata through context.Context so
// services and log handlers can reach it without fiber types.
package reqctx

import (
	"context"
	"time"
)

type ctxKey int

const keyMeta ctxKey = iota

// RequestMeta is the request-scoped metadata captured at the edge.
type RequestMeta struct {
	RequestID   string
	ClientIP    string
	UserAgent   string
	RequestedAt time.Time
}

// WithRequestMeta attaches request metadata to the context.
func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyMeta, meta)
}

// RequestMetaFromContext retrieves request metadata from the context.
func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}
