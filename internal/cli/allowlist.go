package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newAllowedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allowed IDENTIFIER",
		Short: "Check whether an identifier is on the relay allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ok, aerr := s.ExistsInRelayAllowList(ctx, args[0])
			if aerr != nil {
				return aerr
			}
			return printResult(cmd, opts.output, map[string]any{"identifier": args[0], "allowed": ok}, func(w io.Writer) {
				if ok {
					okLabel.Fprintf(w, "allowed")
				} else {
					errorLabel.Fprintf(w, "not allowed")
				}
				fmt.Fprintf(w, ": %s\n", args[0])
			})
		},
	}
}
