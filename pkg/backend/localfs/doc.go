/*
Package localfs implements pkg/backend.Store over a local filesystem
root (spec §4.C).

Every backend key maps directly to a path under the configured root,
with "/" as the path separator; directory components are created as
needed on write. Reads and writes are ordinary file I/O.

# Concurrency sidecar

Spec §4.C and §9 both flag the same hazard: a plain read-modify-write
over files cannot linearize AtomicIncrement or AcquireLock across
concurrent callers, even within one process, without an explicit
critical section. This adapter keeps a small go.etcd.io/bbolt database
(<root>/.kronoa-meta.db) for that bookkeeping: each AtomicIncrement's
read-increment-store of the counter happens inside a single bbolt
write transaction, which bbolt guarantees is exclusive even when many
goroutines call the adapter concurrently, and every Write,
CreateIfAbsent and Delete bumps or clears a per-key ETag counter there.
After the counter transaction commits, the new decimal value is written
into the adapter's ordinary flat-file key space, so Read/Exists/List
still see it like any other key.

Lock state transitions are not bbolt transactions: pkg/lock drives them
through CreateIfAbsent (an exclusive-create open) and WriteIfMatch,
whose ETag comparison and file write are separate steps.

None of this linearizes across separate OS processes sharing the same
root.
*/
package localfs
