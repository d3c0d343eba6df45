package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/pkg/session"
)

// openReadSession resolves the --from flag into a session to read from:
// "production" or "staging" pin to the live pointers, "edition:<id>"
// previews an arbitrary edition, and anything else is treated as a
// checkout label so a caller can inspect their own in-progress edits
// (that case reopens the label's editing-mode session).
func openReadSession(cmd *cobra.Command) (*session.Session, error) {
	ctx := cmd.Context()
	switch {
	case catMode == "production" || catMode == "":
		return session.OpenProduction(ctx, be, objs)
	case catMode == "staging":
		return session.OpenStaging(ctx, be, objs)
	case strings.HasPrefix(catMode, "edition:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(catMode, "edition:"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid edition id in --from: %w", err)
		}
		return session.OpenEdition(be, objs, id), nil
	default:
		return session.OpenLabel(ctx, be, objs, catMode)
	}
}
