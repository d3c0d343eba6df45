package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/pkg/gc"
	"github.com/codelynx/kronoa/pkg/publish"
	"github.com/codelynx/kronoa/pkg/session"
)

func pipeline() *publish.Pipeline {
	return publish.New(be, objs, cfg.LockWait, cfg.LeaseLength)
}

var submitCmd = &cobra.Command{
	Use:   "submit <label> <message>",
	Short: "Submit the labeled checkout for review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.OpenLabel(cmd.Context(), be, objs, args[0])
		if err != nil {
			return err
		}
		if err := sess.Submit(cmd.Context(), args[1]); err != nil {
			return err
		}
		fmt.Printf("submitted edition %d for review\n", sess.EditionID())
		return nil
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage <edition>",
	Short: "Stage a submitted edition onto the staging pointer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		return pipeline().Stage(cmd.Context(), id)
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Copy the staging pointer onto production",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline().Deploy(cmd.Context())
	},
}

var rejectReason string

var rejectCmd = &cobra.Command{
	Use:   "reject <edition>",
	Short: "Reject a submitted edition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		return pipeline().Reject(cmd.Context(), id, rejectReason)
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <edition>",
	Short: "Point staging at a previously staged edition",
	Long: `rollback repoints the staging pointer at edition directly
(spec §4.H set_staging_pointer), without re-running stage's conflict
check. The caller is responsible for choosing an edition that was
staged before; pointing at one that never was makes it a GC candidate
on its next pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		return pipeline().SetStagingPointer(cmd.Context(), id)
	},
}

var flattenCmd = &cobra.Command{
	Use:   "flatten <edition>",
	Short: "Collapse edition's ancestry chain into a single flatten boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		return pipeline().Flatten(cmd.Context(), id)
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Run a dry-run garbage collection pass over the object store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		collector := gc.New(be, objs, cfg.LockWait, cfg.LeaseLength)
		result, err := collector.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("live editions:    %d\n", result.LiveEditions)
		fmt.Printf("objects scanned:  %d\n", result.ObjectsScanned)
		fmt.Printf("kept (fast path): %d\n", result.KeptFastPath)
		fmt.Printf("kept (scan path): %d\n", result.KeptScanPath)
		fmt.Printf("orphans:          %d\n", len(result.Orphans))
		for _, hexDigest := range result.Orphans {
			fmt.Printf("  %s\n", hexDigest)
		}
		return nil
	},
}
