package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/pkg/pointer"
	"github.com/codelynx/kronoa/pkg/session"
)

var checkoutSource string

var checkoutCmd = &cobra.Command{
	Use:   "checkout <label>",
	Short: "Open a new editing session under label, branched from production or staging",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := pointer.Production
		if checkoutSource == "staging" {
			source = pointer.Staging
		} else if checkoutSource != "" && checkoutSource != "production" {
			return fmt.Errorf("--source must be production or staging")
		}
		sess, err := session.Checkout(cmd.Context(), be, objs, args[0], source)
		if err != nil {
			return err
		}
		fmt.Printf("checked out %q as edition %d (source %s)\n", args[0], sess.EditionID(), source)
		return nil
	},
}

func init() {
	checkoutCmd.Flags().StringVar(&checkoutSource, "source", "production", "branch source: production or staging")
}
