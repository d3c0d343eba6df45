package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/pkg/session"
)

var writeCmd = &cobra.Command{
	Use:   "write <label> <path> <file>",
	Short: "Write file's contents to path in the labeled editing session",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.OpenLabel(cmd.Context(), be, objs, args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		return sess.Write(cmd.Context(), args[1], data)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <label> <path>",
	Short: "Tombstone path in the labeled editing session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.OpenLabel(cmd.Context(), be, objs, args[0])
		if err != nil {
			return err
		}
		return sess.Delete(cmd.Context(), args[1])
	},
}

var catMode string

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print path's content from production, staging, a label, or an edition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openReadSession(cmd)
		if err != nil {
			return err
		}
		data, err := sess.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <directory>",
	Short: "List directory's live children from production, staging, a label, or an edition",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		sess, err := openReadSession(cmd)
		if err != nil {
			return err
		}
		entries, err := sess.List(cmd.Context(), dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				fmt.Printf("%s/\n", e.Name)
			} else {
				fmt.Println(e.Name)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{catCmd, lsCmd} {
		c.Flags().StringVar(&catMode, "from", "production", "production, staging, a checkout label, or an edition id (e.g. edition:10007)")
	}
}
