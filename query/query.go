// Package query defines the boundary to the stream-query execution
// engine. The engine is an external collaborator: given a query
// specification string and a row-producing source, it returns a lazy
// stream of derived rows.
//
// The pipeline only depends on the Engine and Query interfaces; the
// exprengine subpackage provides a built-in implementation for the
// restricted filter grammar, and hosts may supply any other engine.
package query

import (
	"context"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// CompiledQuery is a query specification string plus its positional
// parameter bindings, derived deterministically from a trigger.
type CompiledQuery struct {
	Text  string
	Binds []any
}

// Source produces the rows a query runs over. A Source is restartable:
// each call opens an independent subscription. The returned channel is
// closed when the source is exhausted or the context is cancelled.
type Source func(ctx context.Context) (<-chan atypes.Row, error)

// Query is an executable query bound to no particular source.
type Query interface {
	// Run binds the query to a row source and returns the lazy result
	// stream. The stream is closed when the source closes or the context
	// is cancelled. Rows that fail to evaluate are skipped.
	Run(ctx context.Context, src Source, binds []any) (<-chan atypes.Row, error)
}

// ErrorReportingQuery is optionally implemented by queries that can
// surface per-row evaluation errors. A reported error never stops the
// stream; the failing row is skipped. onErr may be nil.
type ErrorReportingQuery interface {
	Query
	RunReporting(ctx context.Context, src Source, binds []any, onErr func(error)) (<-chan atypes.Row, error)
}

// Engine compiles query specification text into executable queries.
type Engine interface {
	Compile(text string) (Query, error)
}
