package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/pkg/session"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a fresh root with a genesis edition",
	RunE: func(cmd *cobra.Command, args []string) error {
		genesisID, err := session.Initialize(cmd.Context(), be)
		if err != nil {
			return err
		}
		fmt.Printf("genesis edition %d\n", genesisID)
		return nil
	},
}
