/*
Package gc implements the two-pass garbage collector (component I,
spec §4.I): a live-edition closure seeded from the pointers, pending
records, and every open editing session, checked against each stored
object first via its `.ref` sidecar (fast path) and, failing that, via
a fallback scan of the live editions' own mappings (ground truth).

Dry-run only: actual deletion needs a backend-reported modification
time so a just-uploaded object cannot be collected before its edition
links it (spec §9 "GC mtime gap"), and backend.Store does not expose
one. Reported orphans are therefore advisory until that gap closes.

Grounded on cuemby-warren/pkg/reconciler's ticking background-loop
shape, invoked on demand here rather than run on a ticker, since the
spec treats GC as something an operator or scheduler triggers, not a
continuously reconciling control loop.
*/
package gc
