package alarm

import (
	"context"
	"time"

	"github.com/c360/alarmstreams/pkg/cache"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// dedupWindow is the fixed suppression window for correlation-id
// duplicates. Deliberately not configurable.
const dedupWindow = time.Second

// dedupStream collapses rows sharing a correlation id: the first row
// with a given id passes, later rows with the same id within the window
// are dropped. Rows without a correlation id share the empty key.
//
// Only applied when the rule has more than one trigger; a single trigger
// cannot produce duplicates.
func dedupStream(ctx context.Context, in <-chan atypes.Row, m *pipelineMetrics) <-chan atypes.Row {
	out := make(chan atypes.Row)
	seen := cache.NewTTL[struct{}](dedupWindow, nil)

	go func() {
		defer close(out)
		defer seen.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case row, ok := <-in:
				if !ok {
					return
				}
				if !seen.SetIfAbsent(row.UID(), struct{}{}) {
					m.recordDuplicateDropped()
					continue
				}
				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
