// Package mongoui composes the engine, the saved-profile store and the query
// workspace into one application.
package mongoui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/internal/command"
	"pkt.systems/mongoui/internal/engine"
	"pkt.systems/mongoui/internal/eventbus"
	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/internal/savedconn"
	"pkt.systems/mongoui/internal/textmodel"
	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// Config configures the application.
type Config struct {
	Workspace schema.WorkspaceConfig
	Engine    engine.Config
	// SavedDBPath is the sqlite file holding saved profiles. Empty disables
	// saved profiles.
	SavedDBPath string
}

// Option adjusts how the application is built.
type Option func(*options)

type options struct {
	dialer engine.Dialer
	sinks  []core.EventSink
}

// WithDialer replaces the MongoDB dialer.
func WithDialer(dialer engine.Dialer) Option {
	return func(o *options) { o.dialer = dialer }
}

// WithEventSink adds a workspace event consumer next to the event bus.
func WithEventSink(sink core.EventSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

// App owns one workspace and at most one active connection.
type App struct {
	logger    pslog.Logger
	saved     *savedconn.Store
	engine    *engine.Engine
	view      *textmodel.View
	bus       *eventbus.Bus
	workspace *core.Workspace
	connector *core.Connector
	commands  *command.Handler
	sink      core.EventSink

	mu    sync.Mutex
	conn  schema.ConnectionID
	title string
	tree  *core.NavigationTree
}

// New builds the application. The returned app must be closed.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	o := options{dialer: engine.MongoDialer{ConnectTimeout: cfg.Engine.ConnectTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	logger := pslog.Ctx(ctx)

	app := &App{logger: logger}
	var saved engine.SavedStore
	if cfg.SavedDBPath != "" {
		store, err := savedconn.Open(ctx, cfg.SavedDBPath)
		if err != nil {
			return nil, err
		}
		app.saved = store
		saved = store
	}
	eng, err := engine.New(cfg.Engine, o.dialer, saved, logger)
	if err != nil {
		_ = app.closeSaved()
		return nil, err
	}
	app.engine = eng
	app.connector, err = core.NewConnector(eng)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.bus = eventbus.New(logger)
	sinks := append([]core.EventSink{app.bus}, o.sinks...)
	app.sink = eventFanout{sinks: sinks}
	app.view = textmodel.NewView(nil)
	app.workspace, err = core.NewWorkspace(cfg.Workspace, core.WorkspaceDeps{
		Host:      textmodel.NewHost(),
		View:      app.view,
		EventSink: app.sink,
		Logger:    logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.commands = command.NewHandler(app.workspace, app.navigator, command.WithConnector(app))
	return app, nil
}

// Connect opens a connection from a URI and makes it the active one. A
// failure is also published as an error notice; the previous connection
// stays active.
func (a *App) Connect(ctx context.Context, req schema.ConnectRequest) (schema.ConnectResponse, error) {
	resp, err := a.connector.Connect(ctx, req)
	if err == nil {
		err = a.attach(ctx, resp, DescribeURI(req.URI))
	}
	if err != nil {
		a.notify(err)
		return schema.ConnectResponse{}, err
	}
	return resp, nil
}

// ConnectSaved opens a connection from a saved profile and makes it the
// active one. Failures are published like Connect's.
func (a *App) ConnectSaved(ctx context.Context, id schema.SavedConnectionID) (schema.ConnectResponse, error) {
	resp, err := a.connector.ConnectSaved(ctx, id)
	if err == nil {
		err = a.attach(ctx, resp, fmt.Sprintf("saved #%d", id))
	}
	if err != nil {
		a.notify(err)
		return schema.ConnectResponse{}, err
	}
	return resp, nil
}

// Title names the active connection without credentials.
func (a *App) Title() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == "" {
		return "not connected"
	}
	return a.title
}

// DescribeURI returns the host part of a connection string, dropping
// credentials and options.
func DescribeURI(uri string) string {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || parsed.Host == "" {
		return "connected"
	}
	return parsed.Host
}

// ListSaved returns the saved profiles.
func (a *App) ListSaved(ctx context.Context) ([]schema.SavedConnection, error) {
	return a.connector.ListSaved(ctx)
}

// RenameSaved renames a saved profile.
func (a *App) RenameSaved(ctx context.Context, id schema.SavedConnectionID, name string) error {
	return a.engine.RenameSaved(ctx, id, name)
}

// DeleteSaved removes a saved profile.
func (a *App) DeleteSaved(ctx context.Context, id schema.SavedConnectionID) error {
	return a.engine.DeleteSaved(ctx, id)
}

// Exec runs script against db on the active connection and returns the
// rendered result without touching the workspace.
func (a *App) Exec(ctx context.Context, db schema.TargetName, script string) (string, error) {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == "" {
		return "", schema.ErrNotConnected
	}
	target, err := schema.NormalizeTargetName(string(db))
	if err != nil {
		return "", err
	}
	client, err := core.NewExecutionClient(a.engine, conn, nil)
	if err != nil {
		return "", err
	}
	return client.Execute(ctx, script, target)
}

// Workspace returns the query workspace.
func (a *App) Workspace() *core.Workspace { return a.workspace }

// View returns the editor view the workspace renders into.
func (a *App) View() *textmodel.View { return a.view }

// Commands returns the slash command handler.
func (a *App) Commands() *command.Handler { return a.commands }

// Tree returns the navigation tree of the active connection, or nil.
func (a *App) Tree() *core.NavigationTree {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tree
}

// Subscribe streams workspace events.
func (a *App) Subscribe() (<-chan schema.WorkspaceEvent, func()) {
	return a.bus.Subscribe()
}

// Close releases the workspace, every connection and the profile store.
func (a *App) Close() error {
	if a.workspace != nil {
		a.workspace.Close()
	}
	var errs []error
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	errs = append(errs, a.closeSaved())
	return errors.Join(errs...)
}

func (a *App) closeSaved() error {
	if a.saved == nil {
		return nil
	}
	return a.saved.Close()
}

func (a *App) attach(ctx context.Context, resp schema.ConnectResponse, title string) error {
	client, err := core.NewExecutionClient(a.engine, resp.ConnectionID, nil)
	if err != nil {
		return err
	}
	tree, err := core.NewNavigationTree(resp.ConnectionID, resp.Databases, a.engine, a.workspace)
	if err != nil {
		return err
	}
	a.mu.Lock()
	previous := a.conn
	a.conn = resp.ConnectionID
	a.title = title
	a.tree = tree
	a.mu.Unlock()
	a.workspace.SetExecutor(client)

	log := logx.WithConnection(ctx, resp.ConnectionID)
	log.Info("app connection attached", "databases", len(resp.Databases))
	if previous != "" {
		if err := a.engine.Disconnect(ctx, previous); err != nil {
			log.Warn("app previous connection close failed", "previous", previous, "err", err)
		}
	}
	return nil
}

func (a *App) notify(err error) {
	a.sink.OnWorkspaceEvent(schema.WorkspaceEvent{
		Type:     schema.EventNotice,
		Selected: a.workspace.Selected(),
		Level:    schema.NoticeError,
		Message:  err.Error(),
	})
}

func (a *App) navigator() command.Navigator {
	tree := a.Tree()
	if tree == nil {
		return nil
	}
	return tree
}
