// Package alarm implements the device alarm evaluation pipeline.
//
// An Executor is created per alarm rule. On start it compiles each
// trigger into a stream query, resolves the trigger's row source (the
// shared pipeline input for timer triggers, an event bus subscription
// for event triggers), runs the queries, merges the per-trigger result
// streams, applies shake-limit suppression and duplicate collapsing,
// enriches the surviving rows into alarm records, and both publishes
// them on the event bus and forwards them to the host's output channel.
//
//	input rows ──┬─ query(trigger 0) ─┐
//	             ├─ query(trigger 1) ─┼─ merge ─ shake ─ dedup ─ enrich ─ publish/output
//	bus topics ──┴─ query(trigger N) ─┘
//
// Reload recompiles everything, swaps the compiled-query mapping
// atomically and restarts the pipeline; in-flight rows of the old
// pipeline are discarded.
package alarm
