package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/mongoui/internal/tui"
	"pkt.systems/pslog"
)

func newUICmd() *cobra.Command {
	var flags connectFlags
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, cfg, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			events, cancel := app.Subscribe()
			defer cancel()
			// A failed connect is already queued as a notice for the UI.
			if _, err := flags.connect(ctx, app, cfg); err != nil {
				pslog.Ctx(ctx).Warn("ui initial connect failed", "err", err)
			}
			return tui.Run(ctx, tui.Deps{
				Workspace: app.Workspace(),
				View:      app.View(),
				Tree: func() tui.Tree {
					if tree := app.Tree(); tree != nil {
						return tree
					}
					return nil
				},
				Commands:     app.Commands(),
				Events:       events,
				Title:        app.Title,
				SidebarWidth: cfg.UI.SidebarWidth,
				ShowHelp:     cfg.UI.ShowHelp,
			})
		},
	}
	flags.register(cmd)
	return cmd
}
