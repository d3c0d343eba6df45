// Command kronoa is a thin demonstration CLI over the Kronoa content
// store: checkout, write, submit, stage, deploy, reject, rollback, gc,
// and flatten as individual subcommands driven by a single configured
// backend. The CLI itself is out of scope as a product surface; it
// exists to exercise the library end to end the way cmd/warren
// exercises Warren's daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codelynx/kronoa/internal/kronolog"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/objectstore"
)

var (
	cfgViper = viper.New()
	cfg      *config

	logLevel string
	logJSON  bool

	be   backend.Store
	objs *objectstore.Store
)

var rootCmd = &cobra.Command{
	Use:   "kronoa",
	Short: "Version-controlled content store with a pull-request-style publish pipeline",
	Long: `kronoa drives the checkout -> edit -> submit -> stage -> deploy
lifecycle over a content-addressed object store, either on the local
filesystem or against an S3-compatible bucket.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgViper)
		if err != nil {
			return err
		}
		be, objs, err = openBackend(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open backend: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.PersistentFlags().String("root", "", "storage root directory (local backend)")
	rootCmd.PersistentFlags().String("backend", "", "backend kind: local or s3")
	rootCmd.PersistentFlags().Duration("lock-wait", 0, "how long to wait to acquire the admin lease")
	rootCmd.PersistentFlags().Duration("lease-length", 0, "how long a held admin lease runs before it is stealable")

	_ = cfgViper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = cfgViper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = cfgViper.BindPFlag("lock-wait", rootCmd.PersistentFlags().Lookup("lock-wait"))
	_ = cfgViper.BindPFlag("lease-length", rootCmd.PersistentFlags().Lookup("lease-length"))

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(gcCmd)
}

func initLogging() {
	level := kronolog.Level(logLevel)
	kronolog.Init(kronolog.Config{Level: level, JSONOutput: logJSON})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
