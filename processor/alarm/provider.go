package alarm

import (
	"log/slog"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/eventbus"
	"github.com/c360/alarmstreams/metric"
	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// ExecutionContext is everything the host hands an executor: the rule
// document, the shared input stream, the output sink, and the host's
// error reporting channel. The context outlives reloads; only the rule
// bytes it returns change.
type ExecutionContext interface {
	// Config returns the current rule document bytes. Called again on
	// every reload.
	Config() []byte

	// Input is the shared stream of device rows timer triggers read.
	Input() <-chan atypes.Row

	// Output receives every finalized alarm record.
	Output() chan<- atypes.Record

	// ReportError surfaces a non-fatal runtime error to the host.
	ReportError(err error)

	// Logger returns the host-scoped logger the executor derives from.
	Logger() *slog.Logger
}

// Provider builds alarm executors from execution contexts. A single
// provider is shared by all rules of a host; the bus, engine and metric
// registry it carries are reused across executors.
type Provider struct {
	// Bus carries event trigger subscriptions and published alarms.
	Bus eventbus.Bus

	// Engine compiles trigger queries. Required.
	Engine query.Engine

	// Metrics is optional; nil disables executor metrics.
	Metrics *metric.MetricsRegistry
}

// Create parses and validates the context's rule document and returns a
// ready-to-initialize executor. The configuration is fully validated
// here: a Create that returns nil error always yields a startable
// executor.
func (p Provider) Create(execCtx ExecutionContext) (*Executor, error) {
	if p.Engine == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Provider", "Create", "check query engine")
	}
	if p.Bus == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Provider", "Create", "check event bus")
	}
	if execCtx == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Provider", "Create", "check execution context")
	}

	rule, err := parseConfig(execCtx.Config())
	if err != nil {
		return nil, err
	}

	logger := execCtx.Logger()
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		bus:     p.Bus,
		engine:  p.Engine,
		execCtx: execCtx,
		logger:  logger.With("component", "AlarmExecutor", "alarm", rule.ID),
		metrics: newPipelineMetrics(p.Metrics, rule.ID),
		rule:    rule,
	}, nil
}

// Validate checks a rule document without building an executor: schema
// and semantic validation, then trigger compilation. A document that
// passes here cannot fail Initialize with a compile error. Used by
// hosts to reject bad documents before scheduling.
func Validate(raw []byte) error {
	rule, err := parseConfig(raw)
	if err != nil {
		return err
	}
	for index, trigger := range rule.Triggers {
		if _, err := compileTrigger(index, trigger, *rule); err != nil {
			return err
		}
	}
	return nil
}
