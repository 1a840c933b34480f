package eventbus

import (
	"context"
	"log/slog"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/metric"
	"github.com/c360/alarmstreams/natsclient"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// subscriptionBuffer is the per-subscription channel depth. A slow
// consumer drops messages rather than stall its siblings.
const subscriptionBuffer = 256

// NATSBus implements Bus over a NATS connection.
type NATSBus struct {
	client  *natsclient.Client
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewNATSBus wraps an already connected client. The registry may be nil.
func NewNATSBus(client *natsclient.Client, registry *metric.MetricsRegistry) *NATSBus {
	b := &NATSBus{
		client: client,
		logger: slog.Default().With("component", "eventbus"),
	}
	if registry != nil {
		b.metrics = registry.CoreMetrics()
	}
	return b
}

// Subscribe streams decoded rows from a subject. Undecodable messages
// are counted and skipped; they never stop the stream.
func (b *NATSBus) Subscribe(ctx context.Context, key, subject string) (<-chan atypes.Row, context.CancelFunc, error) {
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan atypes.Row, subscriptionBuffer)

	sub, err := b.client.Subscribe(subCtx, subject, func(msgCtx context.Context, data []byte) {
		if b.metrics != nil {
			b.metrics.RecordMessageReceived(key, "device")
		}

		row, err := DecodeRow(subject, data)
		if err != nil {
			if b.metrics != nil {
				b.metrics.RecordError(key, "decode")
			}
			b.logger.Debug("dropping undecodable device message",
				"subscriber", key, "subject", subject, "error", err)
			return
		}

		select {
		case out <- row:
		case <-msgCtx.Done():
		default:
			if b.metrics != nil {
				b.metrics.RecordError(key, "overflow")
			}
		}
	})
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "EventBus", "Subscribe", "subscribe "+subject)
	}

	b.logger.Info("subscribed", "subscriber", key, "subject", subject)

	go func() {
		<-subCtx.Done()
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn("unsubscribe failed",
				"subscriber", key, "subject", subject, "error", err)
		}
		close(out)
	}()

	return out, cancel, nil
}

// Publish emits an alarm record on a subject.
func (b *NATSBus) Publish(ctx context.Context, subject string, record atypes.Record) error {
	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "EventBus", "Publish", "publish "+subject)
	}

	if b.metrics != nil {
		b.metrics.RecordMessagePublished("eventbus", subject)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (b *NATSBus) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}
