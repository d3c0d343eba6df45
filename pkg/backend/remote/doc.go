/*
Package remote implements pkg/backend.Store over a cloud object-store
client shaped like github.com/minio/minio-go/v7 (spec §4.D). This is
the pack's only S3-client reference: storj-storj/go.mod lists
minio-go as a direct dependency, though its non-test source was
filtered from the retrieval pack, so this adapter is written directly
against the real minio-go/v7 surface rather than against any code
sample.

# Conditional writes

S3-compatible object stores historically have no atomic PUT-if-absent
or PUT-if-match primitive; minio-go/v7 exposes conditional *reads*
(GetObjectOptions.SetMatchETag / SetMatchETagExcept) but not
conditional *writes*. Per spec §4.D and §9 ("Adapter consistency
hazards"), this adapter therefore implements CreateIfAbsent and the
ETag-compare step of AtomicIncrement/WriteIfMatch as a
stat-then-put sequence: it is a real narrowing of the race window, not
a guarantee. The existence and ETag checks run before the write; no
check after the write detects a concurrent writer that won the race.
AtomicIncrement retries under the bounded backoff in internal/retry
when a pre-write check fails; the lock driver (pkg/lock) does not use
internal/retry. Operators running against a
backend that cannot at least guarantee read-after-write consistency on
a single key should not rely on this adapter for the admin lease.
*/
package remote
