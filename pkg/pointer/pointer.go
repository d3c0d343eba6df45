/*
Package pointer implements the two named pointer blobs (spec §3, §6):
`.production.json` and `.staging.json`, each `{"edition": <int>}`. Both
the session engine (checkout reads a pointer to find its base) and the
publish pipeline (stage/deploy/set_staging_pointer write one) share
this code, grounded on the small-JSON-blob read/write style of
cuemby-warren/pkg/types.
*/
package pointer

import (
	"context"
	"encoding/json"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
)

// Name identifies which pointer blob is being addressed.
type Name string

const (
	Production Name = "production"
	Staging    Name = "staging"
)

func (n Name) key() string {
	return "." + string(n) + ".json"
}

// Key exposes the backend key a pointer name is stored under, for
// callers (e.g. garbage collection's live-set seed) that need to read
// it alongside ordinary listing operations.
func (n Name) Key() string { return n.key() }

type blob struct {
	Edition int64 `json:"edition"`
}

// Read returns the edition id a pointer currently names.
// KindEditionNotFound is returned if the pointer blob itself has
// never been written (an uninitialised root).
func Read(ctx context.Context, be backend.Store, name Name) (int64, error) {
	data, err := be.Read(ctx, name.key())
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return 0, kerrs.Wrapf(kerrs.KindEditionNotFound, err, "pointer %q not initialised", name)
		}
		return 0, err
	}
	var b blob
	if jerr := json.Unmarshal(data, &b); jerr != nil {
		return 0, kerrs.Wrapf(kerrs.KindIntegrityError, jerr, "pointer %q: corrupt json", name)
	}
	return b.Edition, nil
}

// Write unconditionally overwrites name to point at editionID. Must
// only be called while holding the admin lease.
func Write(ctx context.Context, be backend.Store, name Name, editionID int64) error {
	data, err := json.Marshal(blob{Edition: editionID})
	if err != nil {
		return err
	}
	return be.Write(ctx, name.key(), data)
}

// CreateIfAbsent initialises name to editionID only if it has never
// been written, used by repository initialisation.
func CreateIfAbsent(ctx context.Context, be backend.Store, name Name, editionID int64) (bool, error) {
	data, err := json.Marshal(blob{Edition: editionID})
	if err != nil {
		return false, err
	}
	return be.CreateIfAbsent(ctx, name.key(), data)
}
