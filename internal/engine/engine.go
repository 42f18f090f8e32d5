// Package engine is the in-process database backend: it keeps the open
// connections, stores saved profiles and evaluates scripts.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkt.systems/mongoui/internal/extjson"
	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// SavedStore persists connection profiles.
type SavedStore interface {
	Create(ctx context.Context, name, uri string) (schema.SavedConnection, error)
	List(ctx context.Context) ([]schema.SavedConnection, error)
	Get(ctx context.Context, id schema.SavedConnectionID) (schema.SavedConnection, error)
	Rename(ctx context.Context, id schema.SavedConnectionID, name string) error
	Delete(ctx context.Context, id schema.SavedConnectionID) error
}

// Config controls engine timeouts.
type Config struct {
	// ConnectTimeout bounds dialing and the initial database listing.
	ConnectTimeout time.Duration
	// DisconnectTimeout bounds closing each session on Close.
	DisconnectTimeout time.Duration
}

// Engine implements core.Backend.
type Engine struct {
	cfg    Config
	dialer Dialer
	saved  SavedStore
	logger pslog.Logger

	mu       sync.Mutex
	sessions map[schema.ConnectionID]Session
}

// New constructs an engine. saved may be nil, in which case saving and
// saved-profile commands fail.
func New(cfg Config, dialer Dialer, saved SavedStore, logger pslog.Logger) (*Engine, error) {
	if dialer == nil {
		return nil, errors.New("dialer is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		cfg:      cfg,
		dialer:   dialer,
		saved:    saved,
		logger:   logger,
		sessions: make(map[schema.ConnectionID]Session),
	}, nil
}

// Connect dials req.URI, lists its databases and, when requested, saves the
// profile once the connection is known to work.
func (e *Engine) Connect(ctx context.Context, req schema.ConnectRequest) (schema.ConnectResponse, error) {
	if req.Save && e.saved == nil {
		return schema.ConnectResponse{}, schema.NewConfigurationError("connect", schema.ErrBackendUnavailable)
	}
	resp, session, err := e.open(ctx, req.URI)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	if req.Save {
		if _, err := e.saved.Create(ctx, req.SaveName, req.URI); err != nil {
			e.discard(session)
			return schema.ConnectResponse{}, err
		}
	}
	e.register(ctx, resp.ConnectionID, session)
	return resp, nil
}

// ListSaved returns the saved profiles.
func (e *Engine) ListSaved(ctx context.Context) ([]schema.SavedConnection, error) {
	if e.saved == nil {
		return []schema.SavedConnection{}, nil
	}
	return e.saved.List(ctx)
}

// ConnectSaved connects with a saved profile.
func (e *Engine) ConnectSaved(ctx context.Context, req schema.ConnectSavedRequest) (schema.ConnectResponse, error) {
	if e.saved == nil {
		return schema.ConnectResponse{}, schema.ErrSavedConnectionNotFound
	}
	profile, err := e.saved.Get(ctx, req.ID)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	resp, session, err := e.open(ctx, profile.URI)
	if err != nil {
		return schema.ConnectResponse{}, err
	}
	e.register(ctx, resp.ConnectionID, session)
	return resp, nil
}

// RenameSaved renames a saved profile.
func (e *Engine) RenameSaved(ctx context.Context, id schema.SavedConnectionID, name string) error {
	if e.saved == nil {
		return schema.ErrSavedConnectionNotFound
	}
	return e.saved.Rename(ctx, id, name)
}

// DeleteSaved removes a saved profile.
func (e *Engine) DeleteSaved(ctx context.Context, id schema.SavedConnectionID) error {
	if e.saved == nil {
		return schema.ErrSavedConnectionNotFound
	}
	return e.saved.Delete(ctx, id)
}

// ListCollections lists the collections of req.Database.
func (e *Engine) ListCollections(ctx context.Context, req schema.ListCollectionsRequest) ([]schema.CollectionName, error) {
	session, err := e.session(req.ConnectionID)
	if err != nil {
		return nil, err
	}
	names, err := session.CollectionNames(ctx, string(req.Database))
	if err != nil {
		return nil, err
	}
	out := make([]schema.CollectionName, 0, len(names))
	for _, name := range names {
		out = append(out, schema.CollectionName(name))
	}
	return out, nil
}

// ExecScript evaluates req.Script against req.Database and returns the result
// as relaxed extended JSON.
func (e *Engine) ExecScript(ctx context.Context, req schema.ExecScriptRequest) (schema.ExecScriptResponse, error) {
	session, err := e.session(req.ConnectionID)
	if err != nil {
		return schema.ExecScriptResponse{}, err
	}
	log := logx.WithTarget(logx.WithConnection(ctx, req.ConnectionID), req.Database)
	started := time.Now()
	value, err := runScript(ctx, session, string(req.Database), req.Script)
	if err != nil {
		log.Debug("engine script failed", "err", err, "duration", time.Since(started))
		return schema.ExecScriptResponse{}, err
	}
	payload, err := extjson.Encode(value)
	if err != nil {
		return schema.ExecScriptResponse{}, err
	}
	log.Debug("engine script finished", "duration", time.Since(started), "bytes", len(payload))
	return schema.ExecScriptResponse{Payload: payload}, nil
}

// Disconnect closes one connection.
func (e *Engine) Disconnect(ctx context.Context, id schema.ConnectionID) error {
	e.mu.Lock()
	session, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if !ok {
		return schema.ErrConnectionNotFound
	}
	return session.Close(ctx)
}

// Close disconnects every session.
func (e *Engine) Close() error {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[schema.ConnectionID]Session)
	e.mu.Unlock()
	var errs []error
	for id, session := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DisconnectTimeout)
		if err := session.Close(ctx); err != nil {
			e.logger.Warn("engine disconnect failed", "connection", id, "err", err)
			errs = append(errs, err)
		}
		cancel()
	}
	return errors.Join(errs...)
}

func (e *Engine) open(ctx context.Context, uri string) (schema.ConnectResponse, Session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()
	session, err := e.dialer.Dial(dialCtx, uri)
	if err != nil {
		return schema.ConnectResponse{}, nil, err
	}
	names, err := session.DatabaseNames(dialCtx)
	if err != nil {
		e.discard(session)
		return schema.ConnectResponse{}, nil, err
	}
	dbs := make([]schema.TargetName, 0, len(names))
	for _, name := range names {
		dbs = append(dbs, schema.TargetName(name))
	}
	id := schema.ConnectionID(uuid.NewString())
	return schema.ConnectResponse{ConnectionID: id, Databases: dbs}, session, nil
}

func (e *Engine) register(ctx context.Context, id schema.ConnectionID, session Session) {
	e.mu.Lock()
	e.sessions[id] = session
	count := len(e.sessions)
	e.mu.Unlock()
	logx.WithConnection(ctx, id).Info("engine connection registered", "connections", count)
}

func (e *Engine) discard(session Session) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DisconnectTimeout)
	defer cancel()
	if err := session.Close(ctx); err != nil {
		e.logger.Warn("engine disconnect failed", "err", err)
	}
}

func (e *Engine) session(id schema.ConnectionID) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[id]
	if !ok {
		return nil, schema.ErrConnectionNotFound
	}
	return session, nil
}
