package core

import (
	"context"
	"errors"

	"pkt.systems/mongoui/internal/extjson"
	"pkt.systems/mongoui/internal/format"
	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/schema"
)

// ExecutionClient runs scripts on one backend connection and renders the
// decoded results.
type ExecutionClient struct {
	backend  Backend
	conn     schema.ConnectionID
	renderer Renderer
}

// NewExecutionClient binds a client to conn. A nil renderer selects the
// extended renderer.
func NewExecutionClient(backend Backend, conn schema.ConnectionID, renderer Renderer) (*ExecutionClient, error) {
	if backend == nil {
		return nil, schema.ErrBackendUnavailable
	}
	if conn == "" {
		return nil, schema.ErrNotConnected
	}
	if renderer == nil {
		renderer = format.NewExtendedRenderer()
	}
	return &ExecutionClient{backend: backend, conn: conn, renderer: renderer}, nil
}

// Connection returns the connection the client is bound to.
func (c *ExecutionClient) Connection() schema.ConnectionID {
	return c.conn
}

// Execute sends script to the backend and returns the rendered result. It is
// never retried.
func (c *ExecutionClient) Execute(ctx context.Context, script string, target schema.TargetName) (string, error) {
	if ctx == nil {
		return "", errors.New("missing context")
	}
	log := logx.WithTarget(logx.WithConnection(ctx, c.conn), target)
	resp, err := c.backend.ExecScript(ctx, schema.ExecScriptRequest{
		ConnectionID: c.conn,
		Database:     target,
		Script:       script,
	})
	if err != nil {
		log.Debug("exec script failed", "err", err)
		return "", schema.NewExecutionError("exec", err)
	}
	value, err := extjson.Decode(resp.Payload)
	if err != nil {
		log.Warn("exec result decode failed", "err", err, "payload_len", len(resp.Payload))
		return "", schema.NewExecutionError("decode", err)
	}
	return c.renderer.Render(value), nil
}
