/*
	Project: ECD Materials - printable worksheets for early childhood development classes
	Target: ECD centres & pre-schools (0-6 years)
*/
package ecdmaterials

/*
TODO: edit lock is per process (material.Service.lock): two API replicas can interleave
	edits of the same material. Move to a row lock / version column in `materials`.

TODO: document history: keep the previous document.json under
	materials/<school>/<id>/history/<ts>.json so teachers can undo a bad edit.

TODO: PNG export for schools printing from phones (SVG preview only for now).

TODO: multi-school staff: claims carry a single school_id, so a teacher working at two centres
	needs a token per school.

TODO: share with parents without email (SMS link to the signed preview URL).
*/
