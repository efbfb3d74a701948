package utils

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestGroupWorkParallel(t *testing.T) {
	for _, size := range []int{1, 3, 17, 1000} {
		var mu sync.Mutex
		covered := make([]int, size)
		err := GroupWorkParallel(context.Background(), size, func(_ context.Context, _, from, to int) error {
			mu.Lock()
			defer mu.Unlock()
			for i := from; i < to; i++ {
				covered[i]++
			}
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		for _, count := range covered {
			test.That(t, count, test.ShouldEqual, 1)
		}
	}

	test.That(t, GroupWorkParallel(context.Background(), 0, nil), test.ShouldBeNil)
}

func TestGroupWorkParallelErrors(t *testing.T) {
	bad := errors.New("bad")
	err := GroupWorkParallel(context.Background(), 100, func(_ context.Context, groupNum, _, _ int) error {
		if groupNum == 0 {
			return bad
		}
		return nil
	})
	test.That(t, err, test.ShouldBeError, bad)

	err = GroupWorkParallel(context.Background(), 10, func(_ context.Context, _, _, _ int) error {
		panic(1)
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "got panic")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = GroupWorkParallel(ctx, 10, func(_ context.Context, _, _, _ int) error {
		return nil
	})
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
