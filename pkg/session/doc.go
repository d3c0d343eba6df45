/*
Package session implements the buffered editing / transaction engine
(component G, spec §4.G): checkout, ancestry-aware reads layered with
an in-memory pending buffer, explicit transactions, and submit.

A Session is opened in one of five modes (Production, Staging, Editing,
Submitted, EditionView); only Editing allows mutation. Outside an
explicit transaction, write/delete auto-commit immediately; inside one,
changes sit in the pending map until Commit, matching the teacher's
habit (cuemby-warren/pkg/reconciler) of keeping a small in-memory diff
against durable state until a single flush point.
*/
package session
