package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

func newSavedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved connections",
	}
	cmd.AddCommand(newSavedListCmd())
	cmd.AddCommand(newSavedRenameCmd())
	cmd.AddCommand(newSavedDeleteCmd())
	return cmd
}

func newSavedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)
			saved, err := app.ListSaved(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tURI")
			for _, profile := range saved {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", profile.ID, profile.Name, profile.URI)
			}
			return w.Flush()
		},
	}
}

func newSavedRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a saved connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseSavedID(args[0])
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)
			if err := app.RenameSaved(ctx, id, args[1]); err != nil {
				return err
			}
			pslog.Ctx(ctx).Info("saved connection renamed", "id", id, "name", args[1])
			return nil
		},
	}
}

func newSavedDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseSavedID(args[0])
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)
			if err := app.DeleteSaved(ctx, id); err != nil {
				return err
			}
			pslog.Ctx(ctx).Info("saved connection deleted", "id", id)
			return nil
		},
	}
}

func parseSavedID(raw string) (schema.SavedConnectionID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid saved connection id %q", raw)
	}
	return schema.SavedConnectionID(id), nil
}
