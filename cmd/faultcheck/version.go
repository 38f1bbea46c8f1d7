package main

import (
	"fmt"

	"github.com/couchbase/faultcheck/pkg/version"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (git commit %s)\n", version.Application, version.Version, version.GitCommit)
		},
	}
}
