package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/config"
	"github.com/pensieve-kb/pensieve/internal/output"
)

const configFileName = ".pensieve.yaml"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .pensieve.yaml in the current directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(configFileName); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configFileName)
	}

	cfg := config.NewConfig()
	if flagDataDir != "" {
		cfg.Library.DataDir = flagDataDir
	}

	if err := cfg.WriteYAML(configFileName); err != nil {
		return err
	}

	out.Successf("wrote %s", configFileName)
	out.Dim("edit it to tune chunking, search, and embedding settings")
	return nil
}
