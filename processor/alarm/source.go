package alarm

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/eventbus"
	"github.com/c360/alarmstreams/pkg/buffer"
	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// inputBufferSize bounds each timer trigger's private view of the shared
// pipeline input.
const inputBufferSize = 1024

// stampRow copies the row and fixes its rule context before the query
// engine sees it: deviceName/productName only when absent, the rule's
// product, alarm id and alarm name always.
func stampRow(row atypes.Row, rule atypes.AlarmRule) atypes.Row {
	out := row.Clone()
	if out.Headers == nil {
		out.Headers = make(map[string]any)
	}
	if rule.DeviceName != "" {
		if _, ok := out.Headers[atypes.HeaderDeviceName]; !ok {
			out.Headers[atypes.HeaderDeviceName] = rule.DeviceName
		}
	}
	if rule.ProductName != "" {
		if _, ok := out.Headers["productName"]; !ok {
			out.Headers["productName"] = rule.ProductName
		}
	}
	out.Headers["productId"] = rule.ProductID
	out.Headers["alarmId"] = rule.ID
	out.Headers["alarmName"] = rule.Name
	return out
}

// subscriptionKey names an event trigger's bus subscription uniquely per
// (rule, trigger index) so concurrently running rules never collide.
func subscriptionKey(ruleID string, index int) string {
	return fmt.Sprintf("device_alarm:%s:%d", ruleID, index)
}

// sharedInput fans the pipeline input out to the timer triggers. All
// subscribers register before the pump starts, so the first row is seen
// by every trigger. Each subscriber owns a drop-oldest ring so one slow
// query cannot stall the rest.
type sharedInput struct {
	mu      sync.Mutex
	subs    []*inputSub
	started bool
	done    chan struct{}
}

type inputSub struct {
	ring   buffer.Buffer[atypes.Row]
	notify chan struct{}
}

func newSharedInput() *sharedInput {
	return &sharedInput{done: make(chan struct{})}
}

// subscribe returns a row source for one timer trigger. Rows tagged with
// a trigger index are delivered only to that trigger; untagged rows are
// broadcast. Must be called before start.
func (s *sharedInput) subscribe(index int) query.Source {
	sub := &inputSub{
		ring:   buffer.NewRing[atypes.Row](inputBufferSize, buffer.DropOldest, nil),
		notify: make(chan struct{}, 1),
	}

	s.mu.Lock()
	registered := !s.started
	if registered {
		s.subs = append(s.subs, sub)
	}
	s.mu.Unlock()

	return func(ctx context.Context) (<-chan atypes.Row, error) {
		if !registered {
			return nil, errors.WrapInvalid(errors.ErrAlreadyStarted,
				"SharedInput", "subscribe", "subscribe after pump start")
		}

		out := make(chan atypes.Row)
		go func() {
			defer close(out)
			for {
				for {
					row, ok := sub.ring.Read()
					if !ok {
						break
					}
					if tag, tagged := row.TriggerIndex(); tagged && tag != index {
						continue
					}
					select {
					case out <- row:
					case <-ctx.Done():
						return
					}
				}

				select {
				case <-sub.notify:
				case <-s.done:
					// Drain whatever arrived before shutdown.
					if sub.ring.Size() == 0 {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, nil
	}
}

// start pumps the pipeline input to every subscriber until the input
// closes or ctx ends. It is expected to run in its own goroutine.
func (s *sharedInput) start(ctx context.Context, input <-chan atypes.Row, rule atypes.AlarmRule, onRow func()) {
	s.mu.Lock()
	s.started = true
	subs := s.subs
	s.mu.Unlock()

	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-input:
			if !ok {
				return
			}
			if onRow != nil {
				onRow()
			}
			stamped := stampRow(row, rule)
			for _, sub := range subs {
				_ = sub.ring.Write(stamped)
				select {
				case sub.notify <- struct{}{}:
				default:
				}
			}
		}
	}
}

// eventSource builds a row source backed by an event bus subscription.
// The subscription is created per Run so a reloaded pipeline gets a
// fresh one.
func eventSource(bus eventbus.Bus, key, topic string, rule atypes.AlarmRule, onRow func()) query.Source {
	return func(ctx context.Context) (<-chan atypes.Row, error) {
		rows, cancel, err := bus.Subscribe(ctx, key, topic)
		if err != nil {
			return nil, err
		}

		out := make(chan atypes.Row)
		go func() {
			defer close(out)
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case row, ok := <-rows:
					if !ok {
						return
					}
					if onRow != nil {
						onRow()
					}
					select {
					case out <- stampRow(row, rule):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	}
}
