package core

import (
	"context"
	"errors"

	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/schema"
)

// Connector validates connection requests and forwards them to the backend.
type Connector struct {
	backend Backend
}

// NewConnector constructs a connector for backend.
func NewConnector(backend Backend) (*Connector, error) {
	if backend == nil {
		return nil, schema.ErrBackendUnavailable
	}
	return &Connector{backend: backend}, nil
}

// Connect opens a connection. Configuration problems are reported before any
// backend call.
func (c *Connector) Connect(ctx context.Context, req schema.ConnectRequest) (schema.ConnectResponse, error) {
	if ctx == nil {
		return schema.ConnectResponse{}, errors.New("missing context")
	}
	uri, err := schema.NormalizeURI(req.URI)
	if err != nil {
		return schema.ConnectResponse{}, schema.NewConfigurationError("connect", err)
	}
	req.URI = uri
	if req.Save {
		name, err := schema.NormalizeSaveName(req.SaveName)
		if err != nil {
			return schema.ConnectResponse{}, schema.NewConfigurationError("connect", err)
		}
		req.SaveName = name
	} else {
		req.SaveName = ""
	}
	resp, err := c.backend.Connect(ctx, req)
	if err != nil {
		logx.Ctx(ctx).Warn("connect failed", "save", req.Save, "err", err)
		return schema.ConnectResponse{}, wrapConnectionError("connect", err)
	}
	logx.WithConnection(ctx, resp.ConnectionID).Info("connected", "databases", len(resp.Databases), "saved", req.Save)
	return resp, nil
}

// ListSaved returns the saved connection profiles.
func (c *Connector) ListSaved(ctx context.Context) ([]schema.SavedConnection, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	saved, err := c.backend.ListSaved(ctx)
	if err != nil {
		return nil, wrapConnectionError("list saved", err)
	}
	return saved, nil
}

// ConnectSaved opens a connection from a saved profile.
func (c *Connector) ConnectSaved(ctx context.Context, id schema.SavedConnectionID) (schema.ConnectResponse, error) {
	if ctx == nil {
		return schema.ConnectResponse{}, errors.New("missing context")
	}
	if id <= 0 {
		return schema.ConnectResponse{}, schema.NewConfigurationError("connect saved", schema.ErrSavedConnectionNotFound)
	}
	resp, err := c.backend.ConnectSaved(ctx, schema.ConnectSavedRequest{ID: id})
	if err != nil {
		logx.Ctx(ctx).Warn("connect saved failed", "saved_id", int64(id), "err", err)
		return schema.ConnectResponse{}, wrapConnectionError("connect saved", err)
	}
	logx.WithConnection(ctx, resp.ConnectionID).Info("connected", "databases", len(resp.Databases), "saved_id", int64(id))
	return resp, nil
}

func wrapConnectionError(op string, err error) error {
	var connErr *schema.ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	var cfgErr *schema.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return schema.NewConnectionError(op, err)
}
