package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tansive/peerstore/internal/peerdb/db"
	"github.com/tansive/peerstore/internal/peerdb/db/dbmanager"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	var dialect string
	var apply bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print, or apply with --apply, the tables the peer store expects",
		Long: `Print the DDL for the peer and allow_relay_list tables. Without --dialect the
dialect of the configured database is used. With --apply the statements are run
against the configured database; they are idempotent.

Examples:
  peerdb schema --dialect mysql
  peerdb schema --url sqlite:///var/lib/peerdb/peers.db --apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apply {
				ctx, s, err := opts.openStore(cmd)
				if err != nil {
					return err
				}
				defer s.Close()
				if aerr := s.ApplySchema(ctx); aerr != nil {
					return aerr
				}
				return printOK(cmd, opts.output, "schema applied ("+s.Dialect().Name()+")",
					map[string]any{"dialect": s.Dialect().Name(), "applied": true})
			}

			d, err := resolveDialect(opts, dialect)
			if err != nil {
				return err
			}
			return printResult(cmd, opts.output, map[string]any{"dialect": d.Name(), "statements": db.Schema(d)}, func(w io.Writer) {
				fmt.Fprint(w, db.SchemaSQL(d))
			})
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "", "mysql, postgresql or sqlite")
	cmd.Flags().BoolVar(&apply, "apply", false, "Run the statements against the configured database")
	return cmd
}

func resolveDialect(opts *rootOptions, name string) (dbmanager.Dialect, error) {
	if name != "" {
		return dbmanager.DialectByName(name)
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	target, err := dbmanager.ParseTarget(cfg.DB.URL)
	if err != nil {
		return nil, err
	}
	return target.Dialect, nil
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Open the database and print pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats := s.Stats()
			return printResult(cmd, opts.output, map[string]any{"dialect": s.Dialect().Name(), "pool": stats}, func(w io.Writer) {
				okLabel.Fprintf(w, "[OK] ")
				fmt.Fprintf(w, "connected (%s)\n", s.Dialect().Name())
				fmt.Fprintf(w, "connections: open=%d in_use=%d idle=%d max_open=%d\n",
					stats.OpenConnections, stats.InUse, stats.Idle, stats.MaxOpen)
				fmt.Fprintf(w, "borrowed=%d returned=%d waits=%d\n", stats.Requests, stats.Returns, stats.WaitCount)
			})
		},
	}
}
