package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tansive/peerstore/internal/common/uuid"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
	"github.com/tansive/peerstore/internal/peerdb/db/models"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var byGuid bool
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a peer by id, or by guid with --guid",
		Long: `Show a peer. Peer ids are not unique; when several peers share an id one of
them is shown. Use --guid to address a single row.

Examples:
  peerdb get 123456789
  peerdb get --guid 3f1c2a8e-6a1b-4c47-9b0c-2b8f5d1e7a90 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var peer *models.Peer
			if byGuid {
				guid, errStd := uuid.ParseGuid(args[0])
				if errStd != nil {
					return dberror.ErrInvalidInput.Msg(errStd.Error())
				}
				p, aerr := s.GetPeerByGuid(ctx, guid)
				if aerr != nil {
					return aerr
				}
				peer = p
			} else {
				p, aerr := s.GetPeer(ctx, args[0])
				if aerr != nil {
					return aerr
				}
				peer = p
			}
			if peer == nil {
				return dberror.ErrNotFound.Msg("peer not found").Suffix(args[0])
			}

			view := newPeerView(peer)
			return printResult(cmd, opts.output, view, func(w io.Writer) {
				fmt.Fprintf(w, "guid:   %s\n", view.Guid)
				fmt.Fprintf(w, "id:     %s\n", view.ID)
				fmt.Fprintf(w, "uuid:   %s\n", view.UUID)
				fmt.Fprintf(w, "pk:     %s\n", view.PK)
				if view.User != "" {
					fmt.Fprintf(w, "user:   %s\n", view.User)
				}
				if view.Status != nil {
					fmt.Fprintf(w, "status: %d\n", *view.Status)
				}
				fmt.Fprintf(w, "info:   %s\n", view.Info)
			})
		},
	}
	cmd.Flags().BoolVar(&byGuid, "guid", false, "Treat the argument as a peer guid")
	return cmd
}

func newInsertCmd(opts *rootOptions) *cobra.Command {
	var uuidFlag, pkFlag, info string
	cmd := &cobra.Command{
		Use:   "insert ID",
		Short: "Register a new peer and print its guid",
		Long: `Register a new peer. A fresh guid is generated and printed. Binary values are
given in standard base64. No check is made that the id is unused.

Examples:
  peerdb insert 123456789 --uuid Y2xpZW50 --pk cHVibGljLWtleQ== --info '{"os":"linux"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uuidBytes, err := decodeBase64Flag("uuid", uuidFlag)
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}
			pk, err := decodeBase64Flag("pk", pkFlag)
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}

			ctx, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			guid, aerr := s.InsertPeer(ctx, args[0], uuidBytes, pk, info)
			if aerr != nil {
				return aerr
			}
			guidStr := uuid.GuidString(guid)
			return printOK(cmd, opts.output, "peer inserted: "+guidStr, map[string]string{"guid": guidStr, "id": args[0]})
		},
	}
	cmd.Flags().StringVar(&uuidFlag, "uuid", "", "Client uuid (base64)")
	cmd.Flags().StringVar(&pkFlag, "pk", "", "Public key (base64)")
	cmd.Flags().StringVar(&info, "info", "", "Free-form peer info, usually JSON")
	return cmd
}

func newUpdatePKCmd(opts *rootOptions) *cobra.Command {
	var pkFlag, info string
	cmd := &cobra.Command{
		Use:   "update-pk GUID ID",
		Short: "Replace the id, public key and info of a peer",
		Long: `Replace the id, public key and info of the peer with the given guid. A guid
that matches no peer is not an error.

Examples:
  peerdb update-pk 3f1c2a8e-6a1b-4c47-9b0c-2b8f5d1e7a90 987654321 --pk bmV3LWtleQ== --info '{}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guid, err := uuid.ParseGuid(args[0])
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}
			pk, err := decodeBase64Flag("pk", pkFlag)
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}

			ctx, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if aerr := s.UpdatePK(ctx, guid, args[1], pk, info); aerr != nil {
				return aerr
			}
			return printOK(cmd, opts.output, "peer key updated", map[string]string{"guid": args[0], "id": args[1]})
		},
	}
	cmd.Flags().StringVar(&pkFlag, "pk", "", "Public key (base64)")
	cmd.Flags().StringVar(&info, "info", "", "Free-form peer info, usually JSON")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var payload, payloadFile string
	cmd := &cobra.Command{
		Use:   "update GUID",
		Short: "Apply a JSON update payload to a peer",
		Long: `Apply a JSON update payload to the peer with the given guid. Only "note" is
recognised; other keys are ignored. A blank note leaves the stored note unchanged.

Examples:
  peerdb update 3f1c2a8e-6a1b-4c47-9b0c-2b8f5d1e7a90 --payload '{"note":"office laptop"}'
  peerdb update 3f1c2a8e-6a1b-4c47-9b0c-2b8f5d1e7a90 -f update.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guid, err := uuid.ParseGuid(args[0])
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}

			raw := []byte(payload)
			if payloadFile != "" {
				if raw, err = os.ReadFile(payloadFile); err != nil {
					return fmt.Errorf("reading payload file: %w", err)
				}
			}
			update, err := models.PeerUpdateFromJSON(raw)
			if err != nil {
				return dberror.ErrInvalidInput.Msg(err.Error())
			}

			ctx, s, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if aerr := s.UpdatePeer(ctx, update, guid); aerr != nil {
				return aerr
			}
			msg := "peer updated"
			if update.IsEmpty() {
				msg = "nothing to update"
			}
			return printOK(cmd, opts.output, msg, map[string]any{"guid": args[0], "changed": !update.IsEmpty()})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "{}", "JSON update payload")
	cmd.Flags().StringVarP(&payloadFile, "file", "f", "", "Read the JSON update payload from a file")
	return cmd
}
