package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/mongoui/schema"
)

func newExecCmd() *cobra.Command {
	var flags connectFlags
	var db string
	cmd := &cobra.Command{
		Use:   "exec [script]",
		Short: "Run one script and print the rendered result",
		Long:  "Run one script against a database and print the rendered result. The script is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			script, err := readScript(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			app, cfg, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			connected, err := flags.connect(ctx, app, cfg)
			if err != nil {
				return err
			}
			if !connected {
				return fmt.Errorf("%w: pass --uri, --saved or set default_uri", schema.ErrNotConnected)
			}
			out, err := app.Exec(ctx, schema.TargetName(db), script)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&db, "db", "d", "test", "database the script runs against")
	return cmd
}

func readScript(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	script := strings.TrimSpace(string(data))
	if script == "" {
		return "", errors.New("script is empty")
	}
	return script, nil
}
