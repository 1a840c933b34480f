package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/alarmstreams/component"
	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/eventbus"
	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

var nowFunc = time.Now

// pipelineInputBuffer absorbs short bursts between the intake goroutine
// and the shared input pump of the current pipeline.
const pipelineInputBuffer = 64

// pipeline is one running instance of the evaluation graph. Reload
// builds a new instance and cancels the old one; instances never
// overlap.
type pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc
	input  chan atypes.Row
	done   chan struct{}
}

// Executor evaluates one alarm rule. It implements the component
// lifecycle: created executors are initialized, started against a host
// context, optionally reloaded with new rule documents, and stopped.
//
// Reload is an atomic swap: the new configuration is fully parsed and
// compiled before the running pipeline is touched, so a bad document
// never disturbs evaluation. Rows in flight inside the old pipeline at
// swap time are discarded, not migrated.
type Executor struct {
	bus     eventbus.Bus
	engine  query.Engine
	execCtx ExecutionContext
	logger  *slog.Logger
	metrics *pipelineMetrics

	mu       sync.Mutex
	rule     *atypes.AlarmRule
	compiled map[int]*compiledTrigger
	baseCtx  context.Context

	pipe     atomic.Pointer[pipeline]
	state    atomic.Int32
	shutdown chan struct{}
	stopOnce sync.Once

	startedAt  time.Time
	errorCount atomic.Int64
	lastError  atomic.Value // string
}

// Meta implements component.Inspectable.
func (e *Executor) Meta() component.Metadata {
	e.mu.Lock()
	id, name := e.rule.ID, e.rule.Name
	e.mu.Unlock()

	return component.Metadata{
		Name:        "alarm-" + id,
		Type:        "alarm-executor",
		Description: fmt.Sprintf("evaluation pipeline for alarm rule %q", name),
		Version:     "1.0.0",
	}
}

// Health implements component.Inspectable.
func (e *Executor) Health() component.HealthStatus {
	state := component.State(e.state.Load())

	status := component.HealthStatus{
		Healthy:    state == component.StateStarted,
		State:      state.String(),
		LastCheck:  nowFunc(),
		ErrorCount: int(e.errorCount.Load()),
	}
	if last, ok := e.lastError.Load().(string); ok {
		status.LastError = last
	}
	if state == component.StateStarted {
		status.Uptime = nowFunc().Sub(e.startedAt)
	}
	return status
}

// Initialize compiles the rule's trigger queries. Must be called once
// before Start.
func (e *Executor) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(int32(component.StateCreated), int32(component.StateInitialized)) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "AlarmExecutor", "Initialize", "check state")
	}

	compiled, err := compileAll(e.engine, *e.rule)
	if err != nil {
		e.state.Store(int32(component.StateFailed))
		e.recordError(err)
		return err
	}
	e.compiled = compiled
	e.logger.Info("alarm executor initialized", "triggers", len(compiled))
	return nil
}

// Start brings up the evaluation pipeline and the input intake. The
// given context bounds the executor's whole lifetime, including any
// pipelines created by later reloads.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()

	// The state transition and the setup happen under one lock so a
	// racing Reload or Stop never observes a started executor whose
	// pipeline or base context is not in place yet, and never swaps in
	// a pipeline only to have it overwritten here.
	if !e.state.CompareAndSwap(int32(component.StateInitialized), int32(component.StateStarted)) {
		e.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "AlarmExecutor", "Start", "check state")
	}

	e.baseCtx = ctx
	e.shutdown = make(chan struct{})
	e.startedAt = nowFunc()
	e.pipe.Store(e.startPipeline(*e.rule, e.compiled))
	e.mu.Unlock()

	go e.intake(e.execCtx.Input())

	e.logger.Info("alarm executor started")
	return nil
}

// Stop cancels the running pipeline and waits for it to wind down, up
// to the given timeout.
func (e *Executor) Stop(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if component.State(e.state.Load()) != component.StateStarted {
		return errors.WrapInvalid(errors.ErrNotStarted, "AlarmExecutor", "Stop", "check state")
	}

	var timedOut bool
	e.stopOnce.Do(func() {
		close(e.shutdown)
		if p := e.pipe.Swap(nil); p != nil {
			p.cancel()
			select {
			case <-p.done:
			case <-time.After(timeout):
				timedOut = true
			}
		}
	})

	e.state.Store(int32(component.StateStopped))
	if timedOut {
		err := errors.WrapTransient(errors.ErrConnectionTimeout, "AlarmExecutor", "Stop", "wait for pipeline drain")
		e.recordError(err)
		return err
	}
	e.logger.Info("alarm executor stopped")
	return nil
}

// Reload re-reads the rule document from the execution context and
// swaps the pipeline. Parsing and compilation happen before the running
// pipeline is cancelled: any failure leaves the old configuration
// running untouched. Rows in flight in the old pipeline are discarded.
func (e *Executor) Reload() error {
	rule, err := parseConfig(e.execCtx.Config())
	if err != nil {
		e.recordError(err)
		return err
	}

	compiled, err := compileAll(e.engine, *rule)
	if err != nil {
		e.recordError(err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if component.State(e.state.Load()) == component.StateStarted {
		if old := e.pipe.Swap(nil); old != nil {
			old.cancel()
			<-old.done
		}
		e.pipe.Store(e.startPipeline(*rule, compiled))
	}

	e.rule = rule
	e.compiled = compiled
	e.metrics.recordReload()
	e.logger.Info("alarm executor reloaded", "triggers", len(compiled))
	return nil
}

// intake forwards host input rows to the current pipeline. Rows arriving
// while no pipeline is accepting (stopped, or mid-reload) are dropped.
func (e *Executor) intake(in <-chan atypes.Row) {
	for {
		select {
		case <-e.shutdown:
			return
		case row, ok := <-in:
			if !ok {
				return
			}
			p := e.pipe.Load()
			if p == nil {
				continue
			}
			select {
			case p.input <- row:
			case <-p.ctx.Done():
			case <-e.shutdown:
				return
			}
		}
	}
}

// startPipeline assembles and launches one pipeline instance. A trigger
// whose query fails to start is skipped and reported; the pipeline runs
// degraded on the remaining triggers. Callers hold e.mu.
func (e *Executor) startPipeline(rule atypes.AlarmRule, compiled map[int]*compiledTrigger) *pipeline {
	ctx, cancel := context.WithCancel(e.baseCtx)
	p := &pipeline{
		ctx:    ctx,
		cancel: cancel,
		input:  make(chan atypes.Row, pipelineInputBuffer),
		done:   make(chan struct{}),
	}

	shared := newSharedInput()

	streams := make([]<-chan atypes.Row, 0, len(rule.Triggers))
	for index := range rule.Triggers {
		ct := compiled[index]

		var src query.Source
		switch ct.trigger.Kind {
		case atypes.TriggerTimer:
			src = shared.subscribe(index)
		case atypes.TriggerEvent:
			topic := ct.trigger.Topic(rule.ProductID, rule.DeviceID)
			src = eventSource(e.bus, subscriptionKey(rule.ID, index), topic, rule,
				func() { e.metrics.recordRowIn("event") })
		}

		rows, err := e.runTrigger(ctx, ct, src)
		if err != nil {
			e.logger.Warn("trigger query failed to start, skipping",
				"trigger", index, "error", err)
			e.recordError(errors.Wrap(err, "AlarmExecutor", "startPipeline",
				fmt.Sprintf("run trigger %d", index)))
			continue
		}
		streams = append(streams, e.countMatched(ctx, rows, index))
	}

	go shared.start(ctx, p.input, rule, func() { e.metrics.recordRowIn("timer") })

	stream := mergeStreams(ctx, streams)
	if rule.ShakeLimit.Active() {
		stream = shakeStream(ctx, stream, *rule.ShakeLimit, rule.DeviceScoped(), e.metrics)
	}
	if len(rule.Triggers) > 1 {
		stream = dedupStream(ctx, stream, e.metrics)
	}

	go e.consume(ctx, stream, rule, p.done)
	return p
}

// runTrigger starts one trigger's query. Engines that can report
// per-row evaluation errors get a callback routing them to the host;
// the row is skipped and the stream keeps running.
func (e *Executor) runTrigger(ctx context.Context, ct *compiledTrigger, src query.Source) (<-chan atypes.Row, error) {
	reporting, ok := ct.query.(query.ErrorReportingQuery)
	if !ok {
		return ct.query.Run(ctx, src, ct.spec.Binds)
	}
	index := ct.index
	return reporting.RunReporting(ctx, src, ct.spec.Binds, func(rowErr error) {
		e.recordError(errors.Wrap(rowErr, "AlarmExecutor", "runTrigger",
			fmt.Sprintf("evaluate row for trigger %d", index)))
	})
}

// countMatched counts rows passing one trigger's query.
func (e *Executor) countMatched(ctx context.Context, in <-chan atypes.Row, index int) <-chan atypes.Row {
	out := make(chan atypes.Row)
	label := fmt.Sprintf("%d", index)
	go func() {
		defer close(out)
		for row := range in {
			e.metrics.recordRowMatched(label)
			select {
			case out <- row:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// consume drains the pipeline tail: each row is finalized into a record,
// published best effort, and forwarded to the host output.
func (e *Executor) consume(ctx context.Context, in <-chan atypes.Row, rule atypes.AlarmRule, done chan struct{}) {
	defer close(done)

	pub := newPublisher(e.bus, e.logger, e.metrics)
	out := e.execCtx.Output()

	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-in:
			if !ok {
				return
			}
			e.emit(ctx, pub, out, row, rule)
		}
	}
}

// emit finalizes and delivers one row. A panic from a malformed row is
// contained to that row and reported.
func (e *Executor) emit(ctx context.Context, pub *publisher, out chan<- atypes.Record, row atypes.Row, rule atypes.AlarmRule) {
	defer func() {
		if r := recover(); r != nil {
			e.recordError(errors.Wrap(fmt.Errorf("panic: %v", r),
				"AlarmExecutor", "emit", "finalize row"))
		}
	}()

	start := nowFunc()
	record := finalize(rowToRecord(row), rule)

	pub.publish(ctx, record, rule)

	select {
	case out <- record:
		e.metrics.recordEmitted()
		e.metrics.observeLatency(nowFunc().Sub(start).Seconds())
	case <-ctx.Done():
	}
}

// recordError updates health counters and surfaces the error to the
// host.
func (e *Executor) recordError(err error) {
	e.errorCount.Add(1)
	e.lastError.Store(err.Error())
	if e.execCtx != nil {
		e.execCtx.ReportError(err)
	}
}
