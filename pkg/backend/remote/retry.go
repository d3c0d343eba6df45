package remote

import (
	"context"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/internal/retry"
)

// retryDo retries fn under the spec §4.B backoff ladder as long as it
// fails with a concurrent-modification error.
func retryDo(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, func(err error) bool {
		return kerrs.Of(err) == kerrs.KindConcurrentModification
	}, func(attempt int) error {
		return fn()
	})
}
