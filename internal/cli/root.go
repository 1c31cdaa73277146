// Package cli implements the Drive Nest command-line interface using Cobra.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/daemon"
)

var rootCmd = &cobra.Command{
	Use:   "drivenest",
	Short: "Drive Nest — upload files with bounded concurrency",
	Long: `Drive Nest queues file uploads, transfers a bounded number at a time
to local disk, S3 or MinIO, and reports per-file and per-batch progress.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return err
		}
		logCloser, err = daemon.SetupLogging(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var logCloser io.Closer

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
