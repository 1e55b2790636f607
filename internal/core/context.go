package core

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ctxKeyIPAddress contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "client_ua"
)

// ContextWithIPAddress adds the client IP to the context for job logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds the client User-Agent to the context.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// GetIPAddressFromContext extracts the client IP from the context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts the client User-Agent from the context.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// clientAttrs returns log attributes for whatever client details ctx holds.
func clientAttrs(ctx context.Context) []any {
	var attrs []any
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		attrs = append(attrs, slog.String("client_ip", ip))
	}
	if ua := GetUserAgentFromContext(ctx); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	return attrs
}
