// Copyright 2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchbase/faultcheck/pkg/version"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

const (
	// errorCode is what to return on application error.
	errorCode = 1
)

// ErrFailed is raised when a run completes with failures.
var ErrFailed = errors.New("run failed")

// newRootCommand returns the top level command.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           version.Application,
		Short:         "Fault injection checks for sdc-docker NFS shared volumes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// glog expects the standard flag set to be parsed, cobra has
			// already set the values.
			return flag.CommandLine.Parse(nil)
		},
	}

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newSimulateCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()
	glog.Flush()

	if err != nil {
		if !errors.Is(err, ErrFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}

		os.Exit(errorCode)
	}
}
