/*
Package objectstore implements the content-addressed deduplication
layer (component E, spec §4.E): a SHA-256-keyed byte store with a
per-object reference sidecar used by garbage collection.

Key schema: objects/<shard>/<hex>.dat, where <shard> is the first two
hex characters of the 64-character digest, with a companion
objects/<shard>/<hex>.ref file holding the sorted set of edition ids
that have ever staged this object.

Grounded on the read-modify-write-under-lock upsert pattern documented
in cuemby-warren/pkg/storage/doc.go ("Error Wrapping... All errors
wrapped with context"), adapted here to a sidecar-file append instead
of a bucket entry.
*/
package objectstore
