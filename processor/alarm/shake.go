package alarm

import (
	"context"
	"sync"
	"time"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// shakeStream applies shake-limit suppression: rows are collected into
// tumbling windows of the configured duration, and each closed non-empty
// window emits its first row annotated with the window's row count.
//
// Device-scoped rules use a single global window sequence; otherwise
// rows are grouped by device id and each group windows independently,
// with no bound on the number of concurrent groups. A window opens on
// the first row after the previous window closed; a pending window is
// flushed when the stream ends.
func shakeStream(ctx context.Context, in <-chan atypes.Row, limit atypes.ShakeLimit, deviceScoped bool, m *pipelineMetrics) <-chan atypes.Row {
	out := make(chan atypes.Row)
	window := limit.Window.Std()

	scope := "per-device"
	if deviceScoped {
		scope = "global"
	}

	go func() {
		defer close(out)

		groups := make(map[string]chan atypes.Row)
		var wg sync.WaitGroup
		defer func() {
			for _, ch := range groups {
				close(ch)
			}
			wg.Wait()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case row, ok := <-in:
				if !ok {
					return
				}

				key := ""
				if !deviceScoped {
					key = row.DeviceID
				}

				group, exists := groups[key]
				if !exists {
					group = make(chan atypes.Row, 64)
					groups[key] = group
					wg.Add(1)
					go func() {
						defer wg.Done()
						runWindows(ctx, group, out, window, scope, m)
					}()
				}

				select {
				case group <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// runWindows drives the tumbling window sequence for one group.
func runWindows(ctx context.Context, in <-chan atypes.Row, out chan<- atypes.Row, window time.Duration, scope string, m *pipelineMetrics) {
	var first atypes.Row
	count := 0
	var timer *time.Timer
	var timerC <-chan time.Time

	emit := func() {
		if count == 0 {
			return
		}
		record := first.Clone()
		record.SetField(atypes.FieldTotalAlarms, count)
		m.recordWindowClosed(scope, count-1)
		select {
		case out <- record:
		case <-ctx.Done():
		}
		count = 0
		timerC = nil
	}

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-in:
			if !ok {
				emit()
				return
			}
			if count == 0 {
				first = row
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(window)
				timerC = timer.C
			}
			count++
		case <-timerC:
			emit()
		}
	}
}
