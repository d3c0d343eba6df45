/*
Package edition implements the edition graph (component F, spec §4.F):
immutable, monotonically increasing edition ids forming a parent-linked
forest, each node holding a flat set of per-path mappings, each either
an object reference or a tombstone. Resolving a path means walking cur -> parent until
a mapping is found, a flatten marker is hit, or the chain runs out.

Key schema per edition id:

	editions/<id>/.origin     decimal parent id, absent at a forest root
	editions/<id>/.flattened  zero-byte marker; stops ancestry walks
	editions/<id>/<path>      "sha256:<hex>" or the literal "deleted"

Grounded on the ancestry-walk loop shape in cuemby-warren/pkg/reconciler
(repeated state comparison against a converging target) and the small
serializable-record style of cuemby-warren/pkg/types, adapted here to
flat-file markers instead of in-memory structs.
*/
package edition
