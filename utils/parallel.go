package utils

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// GroupWorkFunc processes the half open range [from, to) of a batch.
type GroupWorkFunc func(ctx context.Context, groupNum, from, to int) error

// GroupWorkParallel splits totalSize items into at most ParallelFactor contiguous groups and
// runs groupWork on each in its own goroutine. The last group absorbs the remainder. The first
// error cancels the context handed to the remaining groups and is returned; a panic inside a
// group is converted to an error.
func GroupWorkParallel(ctx context.Context, totalSize int, groupWork GroupWorkFunc) error {
	if totalSize <= 0 {
		return nil
	}
	numGroups := ParallelFactor
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups

	group, groupCtx := errgroup.WithContext(ctx)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		groupNum := groupNum
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to = totalSize
		}
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = fmt.Errorf("got panic running group %d in parallel: %v", groupNum, thePanic)
				}
			}()
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return groupWork(groupCtx, groupNum, from, to)
		})
	}
	return group.Wait()
}
