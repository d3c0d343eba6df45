package publish

import (
	"context"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/pointer"
)

// verifySourceReachable answers the Open Question in spec §9: a
// pending record can claim source=production for a hotfix, but
// nothing stops a corrupt or malicious pending file from naming the
// wrong source, and a bare integer comparison against the recorded
// base trusts that same file. Stage calls this after comparing current
// against rec.Base; in addition, walk editionID's own ancestry (stopping at a flatten
// boundary or a forest root) and confirm current genuinely appears in
// it; absence is reported as conflict-detected exactly as a mismatched
// base would be, since a current value unreachable from editionID
// means the edition was never actually derived from it.
func verifySourceReachable(ctx context.Context, be backend.Store, editionID, base, current int64, source pointer.Name) error {
	cur := editionID
	for {
		if cur == current {
			return nil
		}
		flattened, err := edition.IsFlattened(ctx, be, cur)
		if err != nil {
			return err
		}
		if flattened {
			break
		}
		parent, hasParent, err := edition.Origin(ctx, be, cur)
		if err != nil {
			return err
		}
		if !hasParent {
			break
		}
		cur = parent
	}
	return kerrs.ConflictDetected(base, current, string(source))
}
