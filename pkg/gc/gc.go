package gc

import (
	"context"
	"encoding/json"
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

var logger = kronolog.WithComponent("gc")

const lockKey = ".lock"

// renewEvery is how many scanned objects pass between lease renewals
// (spec §4.I step 3: "renew the lease every ~20 scanned objects").
const renewEvery = 20

// Result is a single GC run's report. Since GC is dry-run-only until
// the backend exposes object modification time (spec §9), Orphans is
// advisory: operators decide what to do with it.
type Result struct {
	LiveEditions   int
	KeptFastPath   int
	KeptScanPath   int
	Orphans        []string // hex digests reported orphaned, not deleted
	ObjectsScanned int
}

// Collector runs the two-pass scan under the admin lease.
type Collector struct {
	be          backend.Store
	objs        *objectstore.Store
	waitBudget  time.Duration
	leaseLength time.Duration
}

// New returns a collector. waitBudget/leaseLength are the same lease
// parameters the publish pipeline uses.
func New(be backend.Store, objs *objectstore.Store, waitBudget, leaseLength time.Duration) *Collector {
	return &Collector{be: be, objs: objs, waitBudget: waitBudget, leaseLength: leaseLength}
}

// Run performs one GC pass.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	lck, err := c.be.AcquireLock(ctx, lockKey, c.waitBudget, c.leaseLength)
	if err != nil {
		return nil, err
	}
	kronometrics.LeaseAcquired.Inc()
	defer func() {
		if relErr := lck.Release(ctx); relErr != nil {
			logger.Warn().Err(relErr).Msg("gc: failed to release lease")
		}
		kronometrics.LeaseReleased.Inc()
	}()

	liveSet, err := c.buildLiveSet(ctx)
	if err != nil {
		return nil, err
	}
	scanHashes, err := c.buildScanHashes(ctx, liveSet)
	if err != nil {
		return nil, err
	}

	result := &Result{LiveEditions: len(liveSet)}

	shards, err := c.be.List(ctx, "objects/", "/")
	if err != nil {
		return nil, err
	}
	for _, shard := range shards {
		if !shard.IsDir {
			continue
		}
		shardPrefix := "objects/" + strings.TrimSuffix(shard.Key, "/") + "/"
		files, err := c.be.List(ctx, shardPrefix, "/")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			hexDigest, ok := strings.CutSuffix(f.Key, ".dat")
			if !ok {
				continue
			}
			result.ObjectsScanned++
			if result.ObjectsScanned%renewEvery == 0 {
				if err := lck.Renew(ctx, c.leaseLength); err != nil {
					return nil, err
				}
			}

			refs, err := c.objs.References(ctx, hexDigest)
			if err != nil {
				return nil, err
			}
			if referencesLiveEdition(refs, liveSet) {
				result.KeptFastPath++
				kronometrics.GCObjectsKeptFastPath.Inc()
				continue
			}
			if scanHashes[hexDigest] {
				result.KeptScanPath++
				kronometrics.GCObjectsKeptScanPath.Inc()
				continue
			}
			result.Orphans = append(result.Orphans, hexDigest)
			kronometrics.GCObjectsOrphaned.Inc()
		}
	}

	logger.Info().Int("live", result.LiveEditions).Int("scanned", result.ObjectsScanned).
		Int("keptFastPath", result.KeptFastPath).Int("keptScanPath", result.KeptScanPath).
		Int("orphans", len(result.Orphans)).Msg("gc pass complete")
	return result, nil
}

func referencesLiveEdition(refs []int64, live map[int64]bool) bool {
	for _, id := range refs {
		if live[id] {
			return true
		}
	}
	return false
}

// buildLiveSet seeds from the production and staging pointers, every
// pending edition, and every open editing session's working edition,
// then walks each seed's ancestry (spec §4.I step 1).
func (c *Collector) buildLiveSet(ctx context.Context) (map[int64]bool, error) {
	seeds := map[int64]bool{}

	prodID, err := pointer.Read(ctx, c.be, pointer.Production)
	if err != nil && kerrs.Of(err) != kerrs.KindEditionNotFound {
		return nil, err
	} else if err == nil {
		seeds[prodID] = true
	}
	stagingID, err := pointer.Read(ctx, c.be, pointer.Staging)
	if err != nil && kerrs.Of(err) != kerrs.KindEditionNotFound {
		return nil, err
	} else if err == nil {
		seeds[stagingID] = true
	}

	pendingEntries, err := c.be.List(ctx, record.PendingPrefix, "/")
	if err != nil {
		return nil, err
	}
	for _, e := range pendingEntries {
		data, rerr := c.be.Read(ctx, record.PendingPrefix+e.Key)
		if rerr != nil {
			continue // best-effort: a corrupt pending record is skipped, not fatal
		}
		var rec record.Pending
		if json.Unmarshal(data, &rec) == nil {
			seeds[rec.Edition] = true
		}
	}

	sessionEntries, err := c.be.List(ctx, "", "/")
	if err != nil {
		return nil, err
	}
	for _, e := range sessionEntries {
		name := e.Key
		if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == pointer.Production.Key() || name == pointer.Staging.Key() {
			continue
		}
		data, rerr := c.be.Read(ctx, name)
		if rerr != nil {
			continue
		}
		var working struct {
			Edition int64 `json:"edition"`
		}
		if json.Unmarshal(data, &working) == nil && working.Edition != 0 {
			seeds[working.Edition] = true
		}
	}

	live := map[int64]bool{}
	for seed := range seeds {
		ancestry, err := edition.Ancestry(ctx, c.be, seed)
		if err != nil {
			return nil, err
		}
		for _, id := range ancestry {
			live[id] = true
		}
	}
	return live, nil
}

// buildScanHashes collects every object hash directly mapped by any
// live edition (not merged through ancestry — each edition's own
// mappings are its contribution to the ground truth), used as the
// fallback path when an object's .ref sidecar doesn't yet mention a
// live edition (spec §4.I step 2, rationale in §4.I: ".ref is only
// updated at stage()").
func (c *Collector) buildScanHashes(ctx context.Context, live map[int64]bool) (map[string]bool, error) {
	hashes := map[string]bool{}
	for id := range live {
		mappings, err := edition.OwnMappings(ctx, c.be, id)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			if hexDigest, ok := strings.CutPrefix(m.Token, "sha256:"); ok {
				hashes[hexDigest] = true
			}
		}
	}
	return hashes, nil
}
