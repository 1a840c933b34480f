package alarm

import (
	"context"

	"golang.org/x/sync/errgroup"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// mergeStreams fans the per-trigger result channels into one unordered
// interleaving. Order within a single trigger is preserved; no ordering
// is guaranteed across triggers. The output closes when every input has
// closed or ctx ends.
func mergeStreams(ctx context.Context, streams []<-chan atypes.Row) <-chan atypes.Row {
	out := make(chan atypes.Row)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, stream := range streams {
		group.Go(func() error {
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case row, ok := <-stream:
					if !ok {
						return nil
					}
					select {
					case out <- row:
					case <-groupCtx.Done():
						return nil
					}
				}
			}
		})
	}

	go func() {
		_ = group.Wait()
		close(out)
	}()

	return out
}
