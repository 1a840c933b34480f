package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360/alarmstreams/eventbus"
	"github.com/c360/alarmstreams/processor/alarm"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// deviceSubjects is the subject pattern feeding timer triggers: every
// device message on the bus.
const deviceSubjects = "device.>"

// ruleHost carries one executor together with its execution context and
// the bus subscription feeding it.
type ruleHost struct {
	path     string
	logger   *slog.Logger
	input    <-chan atypes.Row
	output   chan atypes.Record
	ctx      context.Context
	cancel   context.CancelFunc
	executor *alarm.Executor
}

// Config re-reads the rule document so Reload picks up file edits.
func (h *ruleHost) Config() []byte {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		h.logger.Error("rule document unreadable", "path", h.path, "error", err)
		return nil
	}
	return raw
}

func (h *ruleHost) Input() <-chan atypes.Row     { return h.input }
func (h *ruleHost) Output() chan<- atypes.Record { return h.output }
func (h *ruleHost) Logger() *slog.Logger         { return h.logger }

func (h *ruleHost) ReportError(err error) {
	h.logger.Warn("executor error", "rule_file", h.path, "error", err)
}

// newRuleHost wires a rule file to the bus: a device-message
// subscription as input, and a drain goroutine for the output so a slow
// log never backpressures the pipeline.
func newRuleHost(ctx context.Context, bus eventbus.Bus, provider alarm.Provider, path string, logger *slog.Logger) (*ruleHost, error) {
	subCtx, cancel := context.WithCancel(ctx)

	name := filepath.Base(path)
	input, cancelSub, err := bus.Subscribe(subCtx, "alarm_input:"+name, deviceSubjects)
	if err != nil {
		cancel()
		return nil, err
	}

	h := &ruleHost{
		path:   path,
		logger: logger.With("rule_file", name),
		input:  input,
		output: make(chan atypes.Record, 256),
		ctx:    subCtx,
		cancel: func() { cancelSub(); cancel() },
	}

	executor, err := provider.Create(h)
	if err != nil {
		h.cancel()
		return nil, err
	}
	h.executor = executor

	go h.drainOutput()
	return h, nil
}

// drainOutput logs finalized records. Records were already published to
// the bus by the executor; this is the host-side sink. The output
// channel is never closed: a pipeline that outlived its stop timeout
// may still be sending, so the drain exits on context cancellation
// instead.
func (h *ruleHost) drainOutput() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case record := <-h.output:
			h.logger.Debug("alarm record",
				"alarm", record.AlarmID(),
				"device", record.DeviceID(),
				"total", record.TotalAlarms())
		}
	}
}

func (h *ruleHost) start(ctx context.Context) error {
	if err := h.executor.Initialize(); err != nil {
		return err
	}
	return h.executor.Start(ctx)
}

func (h *ruleHost) stop(timeout time.Duration) {
	if err := h.executor.Stop(timeout); err != nil {
		h.logger.Warn("executor stop failed", "error", err)
	}
	h.cancel()
}

func (h *ruleHost) reload() {
	if err := h.executor.Reload(); err != nil {
		h.logger.Error("reload rejected, previous configuration kept", "error", err)
	}
}
