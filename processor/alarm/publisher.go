package alarm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/alarmstreams/eventbus"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// publisher pushes finalized records onto the event bus. Publishing is
// best effort: a failure is counted and logged but never blocks the
// record from reaching the pipeline output.
type publisher struct {
	bus     eventbus.Bus
	logger  *slog.Logger
	metrics *pipelineMetrics

	// errLimiter throttles publish-failure logs so a dead bus does not
	// flood the log at row rate.
	errLimiter *rate.Limiter
}

func newPublisher(bus eventbus.Bus, logger *slog.Logger, metrics *pipelineMetrics) *publisher {
	return &publisher{
		bus:        bus,
		logger:     logger,
		metrics:    metrics,
		errLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// publish emits the record on its alarm subject. The device segment
// comes from the record, not the rule: an unscoped rule publishes under
// whichever device raised the alarm.
func (p *publisher) publish(ctx context.Context, record atypes.Record, rule atypes.AlarmRule) {
	subject := eventbus.AlarmSubject(rule.ProductID, record.DeviceID(), rule.ID)

	if err := p.bus.Publish(ctx, subject, record); err != nil {
		p.metrics.recordPublishError()
		if p.errLimiter.Allow() {
			p.logger.Warn("alarm publish failed",
				"subject", subject, "alarm", rule.ID, "error", err)
		}
	}
}
