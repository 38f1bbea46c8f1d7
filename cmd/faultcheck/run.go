package main

import (
	"fmt"

	"github.com/couchbase/faultcheck/pkg/config"
	"github.com/couchbase/faultcheck/pkg/harness"
	"github.com/couchbase/faultcheck/pkg/naming"
	"github.com/couchbase/faultcheck/pkg/report"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// newRunCommand runs the volume provision failure scenario.
func newRunCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Break volume provisioning and check users see the failure",
		Long: `Breaks the NFS volume package by replacing its traits, checks that
creating a volume fails with an InternalError, then restores the package.
Results are written to standard output in TAP format.  Skipped runs exit 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}

			runName := naming.RunName()

			glog.Infof("starting run %s", runName)

			hc, cleanup, err := harness.Setup(cmd.Context(), c, runName)
			if err != nil {
				return err
			}

			defer cleanup()

			tap := report.NewTAP(cmd.OutOrStdout(), fmt.Sprintf("%s run %s", cmd.Root().Name(), runName))

			outcome := harness.Run(cmd.Context(), hc, tap)

			tap.Finish()

			if outcome == harness.Failed {
				return ErrFailed
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")

	return cmd
}
