package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
	"github.com/pensieve-kb/pensieve/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(version.GetInfo())
			}
			output.New(cmd.OutOrStdout()).Println(version.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}
