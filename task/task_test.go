package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestTasksAreLazy(t *testing.T) {
	var runs atomic.Int32
	count := Func(func() (int, error) {
		runs.Add(1)
		return 1, nil
	})

	chained := Map(Then(count, func(v int) Task[int] { return Value(v + 1) }), func(v int) (string, error) {
		return "ok", nil
	})
	deferred := Defer(func() Task[int] {
		runs.Add(10)
		return count
	})
	_ = Join([]Task[int]{count, deferred})
	require.Zero(t, runs.Load())

	v, err := chained.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, int32(1), runs.Load())

	_, err = deferred.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(12), runs.Load())
}

func TestRunNilTask(t *testing.T) {
	var nilTask Task[int]
	_, err := nilTask.Run(context.Background())
	require.ErrorIs(t, err, ErrNilTask)
}

func TestThenStopsOnError(t *testing.T) {
	called := false
	_, err := Then(Fail[int](errBoom), func(int) Task[int] {
		called = true
		return Value(0)
	}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.False(t, called)

	_, err = Map(Fail[int](errBoom), func(int) (int, error) {
		called = true
		return 0, nil
	}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.False(t, called)
}

func TestJoinKeepsInputOrder(t *testing.T) {
	delays := []time.Duration{30, 0, 20, 10}
	var tasks []Task[int]
	for i, d := range delays {
		tasks = append(tasks, func(ctx context.Context) (int, error) {
			time.Sleep(d * time.Millisecond)
			return i, nil
		})
	}

	out, err := Join(tasks).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, out)
}

func TestJoinEmpty(t *testing.T) {
	out, err := Join[int](nil).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestJoinFailsWithFirstError(t *testing.T) {
	slow := func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	}

	start := time.Now()
	out, err := Join([]Task[int]{slow, Fail[int](errBoom), slow}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.Nil(t, out)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestZip(t *testing.T) {
	v, err := Zip(Value(2), Value("x"), func(n int, s string) (string, error) {
		return s + string(rune('0'+n)), nil
	}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "x2", v)

	called := false
	_, err = Zip(Value(2), Fail[string](errBoom), func(int, string) (int, error) {
		called = true
		return 0, nil
	}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.False(t, called)
}

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	f := Start(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-f.Done()
	v, err := f.Task().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)

	// the result is kept for later awaits
	v, err = f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestFutureFailure(t *testing.T) {
	f := Start(context.Background(), Fail[int](errBoom))
	_, err := f.Await(context.Background())
	require.ErrorIs(t, err, errBoom)
}
