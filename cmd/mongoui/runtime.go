package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/mongoui"
	"pkt.systems/mongoui/internal/appconfig"
	"pkt.systems/mongoui/internal/engine"
	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// connectFlags selects the connection a command starts with.
type connectFlags struct {
	uri   string
	saved int64
	save  string
}

func (f *connectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.uri, "uri", "", "connection string (defaults to default_uri from config)")
	cmd.Flags().Int64Var(&f.saved, "saved", 0, "connect with the saved profile id")
	cmd.Flags().StringVar(&f.save, "save", "", "save the connection under this name once it succeeds")
}

// request resolves the flags against cfg. ok is false when no connection was
// asked for.
func (f connectFlags) request(cfg appconfig.Config) (req schema.ConnectRequest, ok bool) {
	uri := f.uri
	if uri == "" {
		uri = cfg.DefaultURI
	}
	if uri == "" {
		return schema.ConnectRequest{}, false
	}
	return schema.ConnectRequest{URI: uri, Save: f.save != "", SaveName: f.save}, true
}

func (f connectFlags) connect(ctx context.Context, app *mongoui.App, cfg appconfig.Config) (bool, error) {
	if f.saved != 0 {
		_, err := app.ConnectSaved(ctx, schema.SavedConnectionID(f.saved))
		return err == nil, err
	}
	req, ok := f.request(cfg)
	if !ok {
		return false, nil
	}
	_, err := app.Connect(ctx, req)
	return err == nil, err
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func appConfig(cfg appconfig.Config) mongoui.Config {
	return mongoui.Config{
		Workspace: cfg.WorkspaceSettings(),
		Engine: engine.Config{
			ConnectTimeout:    cfg.ConnectTimeout(),
			DisconnectTimeout: cfg.DisconnectTimeout(),
		},
		SavedDBPath: cfg.SavedDBPath,
	}
}

// openApp loads the config and builds the application.
func openApp(cmd *cobra.Command) (*mongoui.App, appconfig.Config, error) {
	cfg, err := appconfig.Load(configPath(cmd))
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	started := time.Now()
	app, err := mongoui.New(cmd.Context(), appConfig(cfg))
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	pslog.Ctx(cmd.Context()).Debug("app ready", "saved_db", cfg.SavedDBPath, "duration", time.Since(started))
	return app, cfg, nil
}

func closeApp(ctx context.Context, app *mongoui.App) {
	if err := app.Close(); err != nil {
		pslog.Ctx(ctx).Warn("app close failed", "err", err)
	}
}
