package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codelynx/kronoa/pkg/session"
)

// contentBatch is a YAML manifest describing a batch of writes/deletes
// to apply to one checkout in a single transaction, grounded on
// cmd/warren/apply.go's apiVersion/kind/metadata/spec resource shape
// (there it drives services/secrets/volumes; here it drives content
// mappings).
type contentBatch struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   batchMetadata    `yaml:"metadata"`
	Spec       contentBatchSpec `yaml:"spec"`
}

type batchMetadata struct {
	Name string `yaml:"name"`
}

type contentBatchSpec struct {
	Label   string           `yaml:"label"`
	Writes  []contentWriteOp `yaml:"writes,omitempty"`
	Deletes []string         `yaml:"deletes,omitempty"`
	Message string           `yaml:"message,omitempty"`
}

type contentWriteOp struct {
	Path string `yaml:"path"`
	File string `yaml:"file"`
}

var applyFile string
var applySubmit bool

var applyCmd = &cobra.Command{
	Use:   "apply -f <manifest.yaml>",
	Short: "Apply a batch of content writes/deletes from a YAML manifest in one transaction",
	Long: `apply reads a ContentBatch manifest naming an existing checkout
label plus a set of path writes and tombstone deletes, and applies them
as a single session transaction (begin/write.../delete.../commit),
mirroring the scenario-2 "atomic multi-write" walkthrough. Pass
--submit to also submit the checkout for review once the transaction
commits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(applyFile)
		if err != nil {
			return fmt.Errorf("apply: read manifest: %w", err)
		}
		var batch contentBatch
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("apply: parse manifest: %w", err)
		}
		if batch.Kind != "" && batch.Kind != "ContentBatch" {
			return fmt.Errorf("apply: unsupported manifest kind %q", batch.Kind)
		}
		if batch.Spec.Label == "" {
			return fmt.Errorf("apply: spec.label is required")
		}

		ctx := cmd.Context()
		sess, err := session.OpenLabel(ctx, be, objs, batch.Spec.Label)
		if err != nil {
			return fmt.Errorf("apply: open checkout %q: %w", batch.Spec.Label, err)
		}

		if err := sess.Begin(); err != nil {
			return err
		}
		for _, w := range batch.Spec.Writes {
			contents, err := os.ReadFile(w.File)
			if err != nil {
				return fmt.Errorf("apply: read %q: %w", w.File, err)
			}
			if err := sess.Write(ctx, w.Path, contents); err != nil {
				return fmt.Errorf("apply: write %q: %w", w.Path, err)
			}
		}
		for _, p := range batch.Spec.Deletes {
			if err := sess.Delete(ctx, p); err != nil {
				return fmt.Errorf("apply: delete %q: %w", p, err)
			}
		}
		if err := sess.Commit(ctx); err != nil {
			return fmt.Errorf("apply: commit: %w", err)
		}

		fmt.Printf("applied %d write(s) and %d delete(s) to %q (edition %d)\n",
			len(batch.Spec.Writes), len(batch.Spec.Deletes), batch.Spec.Label, sess.EditionID())

		if applySubmit {
			message := batch.Spec.Message
			if message == "" {
				message = batch.Metadata.Name
			}
			if err := sess.Submit(ctx, message); err != nil {
				return fmt.Errorf("apply: submit: %w", err)
			}
			fmt.Printf("submitted edition %d for review\n", sess.EditionID())
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "YAML ContentBatch manifest to apply (required)")
	applyCmd.Flags().BoolVar(&applySubmit, "submit", false, "also submit the checkout for review after committing")
	_ = applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)
}
