package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tansive/peerstore/internal/peerdb/db/models"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q, expected text, json or yaml", format)
}

// peerView is the printable form of a peer. Binary columns are base64 encoded.
type peerView struct {
	Guid   string `json:"guid" yaml:"guid"`
	ID     string `json:"id" yaml:"id"`
	UUID   string `json:"uuid" yaml:"uuid"`
	PK     string `json:"pk" yaml:"pk"`
	User   string `json:"user,omitempty" yaml:"user,omitempty"`
	Info   string `json:"info" yaml:"info"`
	Status *int64 `json:"status,omitempty" yaml:"status,omitempty"`
}

func newPeerView(p *models.Peer) peerView {
	v := peerView{
		Guid:   p.GuidString(),
		ID:     p.ID,
		UUID:   base64.StdEncoding.EncodeToString(p.UUID),
		PK:     base64.StdEncoding.EncodeToString(p.PK),
		Info:   p.Info,
		Status: p.Status,
	}
	if p.User != nil {
		v.User = base64.StdEncoding.EncodeToString(p.User)
	}
	return v
}

// printResult writes data in the selected format. text is used for the text format.
func printResult(cmd *cobra.Command, format string, data any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch format {
	case outputJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	case outputYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(out))
	default:
		text(w)
	}
	return nil
}

func printOK(cmd *cobra.Command, format string, msg string, data any) error {
	return printResult(cmd, format, data, func(w io.Writer) {
		okLabel.Fprintf(w, "[OK] ")
		fmt.Fprintln(w, msg)
	})
}

func decodeBase64Flag(name, value string) ([]byte, error) {
	if value == "" {
		return []byte{}, nil
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return b, nil
}
