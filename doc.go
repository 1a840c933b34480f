// Package alarmstreams provides a streaming evaluation pipeline for device
// alarm rules.
//
// Raw device telemetry flows in as rows, each alarm rule compiles its
// triggers into stream queries, and the pipeline merges the per-trigger
// results, suppresses alarm flapping with a shake-limit window, drops
// near-duplicate alarms raised by overlapping triggers, enriches the
// surviving rows and publishes the finished alarm records.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Lifecycle Controller         │  start / reload / stop
//	│        (processor/alarm)            │
//	└─────────────────────────────────────┘
//	           ↓ builds
//	┌─────────────────────────────────────┐
//	│  Source Router → Query Runner →     │  one lane per trigger
//	│  Merge → Shake-limit → Dedup →      │
//	│  Enrich → Publish                   │
//	└─────────────────────────────────────┘
//	           ↓ communicates via
//	┌─────────────────────────────────────┐
//	│          Event Bus (NATS)           │  device topics in,
//	│          (eventbus, natsclient)     │  alarm topics out
//	└─────────────────────────────────────┘
//
// # Packages
//
// Core:
//   - types/alarm: rule, trigger, shake-limit and row/record model
//   - processor/alarm: the evaluation pipeline and its lifecycle
//   - query: the query engine boundary (compile text, run over a source)
//   - query/exprengine: built-in engine for the restricted filter grammar
//
// Infrastructure:
//   - eventbus: pub/sub boundary with a NATS implementation
//   - natsclient: NATS connection management
//   - config: application configuration loading and validation
//   - metric: Prometheus metrics registry
//   - errors: classified error handling
//   - pkg/buffer, pkg/cache, pkg/retry: supporting primitives
//
// The host owns scheduling: it creates pipelines through
// processor/alarm.Provider and drives Start, Reload and Stop. The
// pipeline owns only evaluation logic.
package alarmstreams
