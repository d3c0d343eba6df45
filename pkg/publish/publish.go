package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/internal/kronolog"
	"github.com/codelynx/kronoa/internal/kronometrics"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/objectstore"
	"github.com/codelynx/kronoa/pkg/pointer"
	"github.com/codelynx/kronoa/pkg/record"
)

var logger = kronolog.WithComponent("publish")

const lockKey = ".lock"

// renewEvery is how many object references stage() attributes between
// lease renewals (spec §4.H step 4: "renew the lease every ~20
// updates").
const renewEvery = 20

// Pipeline is the admin operation surface: stage, deploy,
// set_staging_pointer, reject, and the best-effort listing queries.
// Every mutation acquires the lease named by lockKey first.
type Pipeline struct {
	be          backend.Store
	objs        *objectstore.Store
	waitBudget  time.Duration
	leaseLength time.Duration
}

// New returns a publish pipeline. waitBudget bounds how long a caller
// waits to acquire the lease; leaseLength is how long a held lease
// runs before it is eligible to be stolen (spec §6 defaults: 30s/60s).
func New(be backend.Store, objs *objectstore.Store, waitBudget, leaseLength time.Duration) *Pipeline {
	return &Pipeline{be: be, objs: objs, waitBudget: waitBudget, leaseLength: leaseLength}
}

func (p *Pipeline) withLease(ctx context.Context, op string, fn func(lck backend.Lock) error) error {
	lck, err := p.be.AcquireLock(ctx, lockKey, p.waitBudget, p.leaseLength)
	if err != nil {
		return err
	}
	kronometrics.LeaseAcquired.Inc()
	defer func() {
		if relErr := lck.Release(ctx); relErr != nil {
			logger.Warn().Err(relErr).Str("op", op).Msg("failed to release lease")
		}
		kronometrics.LeaseReleased.Inc()
	}()
	return fn(lck)
}

// Stage implements spec §4.H stage(edition): validates the pending
// record's base against the live pointer, attributes references, then
// flips the staging pointer.
func (p *Pipeline) Stage(ctx context.Context, editionID int64) error {
	return p.withLease(ctx, "stage", func(lck backend.Lock) error {
		rec, err := p.readPending(ctx, editionID)
		if err != nil {
			return err
		}

		origin, hasOrigin, err := edition.Origin(ctx, p.be, editionID)
		if err != nil {
			return err
		}
		if !hasOrigin || origin != rec.Base {
			return kerrs.New(kerrs.KindPendingCorrupt, "stage: edition "+strconv.FormatInt(editionID, 10)+" origin does not match pending record base")
		}

		sourceName := pointer.Name(rec.Source)
		if sourceName != pointer.Staging && sourceName != pointer.Production {
			return kerrs.New(kerrs.KindPendingCorrupt, "stage: pending record names unknown source "+rec.Source)
		}

		current, err := pointer.Read(ctx, p.be, sourceName)
		if err != nil {
			return err
		}
		if current != rec.Base {
			kronometrics.StageConflicts.Inc()
			return kerrs.ConflictDetected(rec.Base, current, rec.Source)
		}
		if err := verifySourceReachable(ctx, p.be, editionID, rec.Base, current, sourceName); err != nil {
			kronometrics.StageConflicts.Inc()
			return err
		}

		mappings, err := edition.OwnMappings(ctx, p.be, editionID)
		if err != nil {
			return err
		}
		updates := 0
		for _, m := range mappings {
			hexDigest, ok := strings.CutPrefix(m.Token, "sha256:")
			if !ok {
				continue // tombstones ("deleted") carry no reference
			}
			if err := p.objs.AppendReference(ctx, hexDigest, editionID); err != nil {
				return err
			}
			updates++
			if updates%renewEvery == 0 {
				if err := lck.Renew(ctx, p.leaseLength); err != nil {
					return err
				}
			}
		}

		if err := pointer.Write(ctx, p.be, pointer.Staging, editionID); err != nil {
			return err
		}
		if err := p.be.Delete(ctx, record.PendingKey(editionID)); err != nil && kerrs.Of(err) != kerrs.KindNotFound {
			return err
		}

		kronometrics.StageSuccessTotal.Inc()
		logger.Info().Int64("edition", editionID).Int("references", updates).Msg("staged")
		return nil
	})
}

// Deploy implements spec §4.H deploy(): copies staging onto
// production under the lease, with no validation beyond holding it.
func (p *Pipeline) Deploy(ctx context.Context) error {
	return p.withLease(ctx, "deploy", func(lck backend.Lock) error {
		stagingID, err := pointer.Read(ctx, p.be, pointer.Staging)
		if err != nil {
			return err
		}
		if err := pointer.Write(ctx, p.be, pointer.Production, stagingID); err != nil {
			return err
		}
		logger.Info().Int64("edition", stagingID).Msg("deployed")
		return nil
	})
}

// SetStagingPointer implements spec §4.H set_staging_pointer(edition),
// used for rollback. The caller is responsible for choosing an
// edition whose references were previously established by a prior
// stage(); pointing at a never-staged edition makes it a GC candidate.
// An edition counts as present if it has a .origin file or is the
// genesis edition, which never has one.
func (p *Pipeline) SetStagingPointer(ctx context.Context, editionID int64) error {
	return p.withLease(ctx, "set_staging_pointer", func(lck backend.Lock) error {
		_, hasOrigin, err := edition.Origin(ctx, p.be, editionID)
		if err != nil {
			return err
		}
		if !hasOrigin && editionID != edition.GenesisID {
			return kerrs.EditionNotFound(editionID)
		}
		if err := pointer.Write(ctx, p.be, pointer.Staging, editionID); err != nil {
			return err
		}
		logger.Info().Int64("edition", editionID).Msg("staging pointer set")
		return nil
	})
}

// Reject implements spec §4.H reject(edition, reason).
func (p *Pipeline) Reject(ctx context.Context, editionID int64, reason string) error {
	return p.withLease(ctx, "reject", func(lck backend.Lock) error {
		if _, err := p.readPending(ctx, editionID); err != nil {
			return err
		}
		rec := record.Rejected{Edition: editionID, Reason: reason, RejectedAt: record.NowISO8601()}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := p.be.Write(ctx, record.RejectedKey(editionID), data); err != nil {
			return err
		}
		if err := p.be.Delete(ctx, record.PendingKey(editionID)); err != nil && kerrs.Of(err) != kerrs.KindNotFound {
			return err
		}
		logger.Info().Int64("edition", editionID).Str("reason", reason).Msg("rejected")
		return nil
	})
}

func (p *Pipeline) readPending(ctx context.Context, editionID int64) (*record.Pending, error) {
	data, err := p.be.Read(ctx, record.PendingKey(editionID))
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return nil, kerrs.New(kerrs.KindPendingNotFound, "stage: no pending record for edition "+strconv.FormatInt(editionID, 10))
		}
		return nil, err
	}
	var rec record.Pending
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, kerrs.Wrapf(kerrs.KindPendingCorrupt, err, "pending record for edition %d is malformed", editionID)
	}
	return &rec, nil
}

// ListPending iterates the `.pending/` prefix, best-effort: a single
// corrupt record is skipped rather than aborting the whole listing
// (spec §4.H: "corrupt records are surfaced only on get_rejection").
func (p *Pipeline) ListPending(ctx context.Context) ([]record.Pending, error) {
	entries, err := p.be.List(ctx, record.PendingPrefix, "")
	if err != nil {
		return nil, err
	}
	var out []record.Pending
	for _, e := range entries {
		data, rerr := p.be.Read(ctx, record.PendingPrefix+e.Key)
		if rerr != nil {
			continue
		}
		var rec record.Pending
		if json.Unmarshal(data, &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRejected iterates the `.rejected/` prefix, same best-effort
// semantics as ListPending.
func (p *Pipeline) ListRejected(ctx context.Context) ([]record.Rejected, error) {
	entries, err := p.be.List(ctx, record.RejectedPrefix, "")
	if err != nil {
		return nil, err
	}
	var out []record.Rejected
	for _, e := range entries {
		data, rerr := p.be.Read(ctx, record.RejectedPrefix+e.Key)
		if rerr != nil {
			continue
		}
		var rec record.Rejected
		if json.Unmarshal(data, &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetRejection returns the rejected record for editionID, surfacing a
// corrupt record as KindRejectedCorrupt rather than silently skipping
// it (unlike ListRejected's best-effort scan).
func (p *Pipeline) GetRejection(ctx context.Context, editionID int64) (*record.Rejected, error) {
	data, err := p.be.Read(ctx, record.RejectedKey(editionID))
	if err != nil {
		return nil, err
	}
	var rec record.Rejected
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, kerrs.Wrapf(kerrs.KindRejectedCorrupt, err, "rejected record for edition %d is malformed", editionID)
	}
	return &rec, nil
}

// Flatten implements spec §4.F's flatten(edition), exposed here
// because flatten is one of the lease-serialized admin operations
// (spec §5 "exactly one holder... {stage, deploy, reject,
// set_staging_pointer, flatten, gc}").
func (p *Pipeline) Flatten(ctx context.Context, editionID int64) error {
	return p.withLease(ctx, "flatten", func(lck backend.Lock) error {
		return edition.Flatten(ctx, p.be, p.objs, editionID)
	})
}
