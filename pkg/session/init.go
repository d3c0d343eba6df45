package session

import (
	"context"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/pointer"
)

// Initialize brings up a fresh root: allocates the genesis edition
// (10000, with neither a parent-link nor a flatten-marker, per spec
// §3) and points both `.production.json` and `.staging.json` at it.
// It is a no-op if the root already has a production pointer; that
// check runs before any id is allocated, so a redundant re-init never
// burns a value off the `editions/.head` counter.
func Initialize(ctx context.Context, be backend.Store) (int64, error) {
	if existing, err := pointer.Read(ctx, be, pointer.Production); err == nil {
		return existing, nil
	} else if kerrs.Of(err) != kerrs.KindEditionNotFound {
		return 0, err
	}

	genesisID, err := edition.NextID(ctx, be)
	if err != nil {
		return 0, err
	}
	created, err := pointer.CreateIfAbsent(ctx, be, pointer.Production, genesisID)
	if err != nil {
		return 0, err
	}
	if !created {
		existing, err := pointer.Read(ctx, be, pointer.Production)
		if err != nil {
			return 0, err
		}
		return existing, nil
	}
	if _, err := pointer.CreateIfAbsent(ctx, be, pointer.Staging, genesisID); err != nil {
		return 0, err
	}
	return genesisID, nil
}
