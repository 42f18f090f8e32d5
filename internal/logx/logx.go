package logx

import (
	"context"

	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	connectionKey contextKey = iota
	bufferKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithConnection annotates the logger with the connection id if present.
func WithConnection(ctx context.Context, conn schema.ConnectionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if conn != "" {
		if current, ok := ctx.Value(connectionKey).(schema.ConnectionID); ok && current == conn {
			return log
		}
		log = log.With("connection", conn)
	}
	return log
}

// WithBuffer annotates the logger with the buffer id.
func WithBuffer(ctx context.Context, id schema.BufferID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != 0 {
		if current, ok := ctx.Value(bufferKey).(schema.BufferID); ok && current == id {
			return log
		}
		log = log.With("buffer", id.String())
	}
	return log
}

// WithTarget annotates the logger with the target database when available.
func WithTarget(log pslog.Logger, target schema.TargetName) pslog.Logger {
	if target != "" {
		log = log.With("target", target)
	}
	return log
}

// ContextWithConnection stores the connection marker on the context for log de-duplication.
func ContextWithConnection(ctx context.Context, conn schema.ConnectionID) context.Context {
	if ctx == nil || conn == "" {
		return ctx
	}
	return context.WithValue(ctx, connectionKey, conn)
}

// ContextWithBuffer stores the buffer marker on the context for log de-duplication.
func ContextWithBuffer(ctx context.Context, id schema.BufferID) context.Context {
	if ctx == nil || id == 0 {
		return ctx
	}
	return context.WithValue(ctx, bufferKey, id)
}

// ContextWithConnectionLogger attaches the logger and connection marker to the context.
func ContextWithConnectionLogger(ctx context.Context, log pslog.Logger, conn schema.ConnectionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithConnection(ctx, conn)
}

// ContextWithBufferLogger attaches the logger and buffer marker to the context.
func ContextWithBufferLogger(ctx context.Context, log pslog.Logger, id schema.BufferID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithBuffer(ctx, id)
}
