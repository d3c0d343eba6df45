/*
Package publish implements the review/promotion pipeline (component H,
spec §4.H): stage, deploy, set_staging_pointer (rollback), reject, and
the best-effort pending/rejected listing operations. Every mutating
operation acquires the admin lease (pkg/lock) first and releases it on
every exit path, renewing it for long-running steps.

Grounded on cuemby-warren/pkg/reconciler.Reconciler's
lease-guarded-operation-with-periodic-renewal shape, generalized from a
reconcile loop to a one-shot admin action.
*/
package publish
