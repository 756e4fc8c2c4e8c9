package framework

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeClock(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewFakeClock(start)
	require.Equal(t, start, c.Now())
	at := <-c.After(time.Second)
	require.Equal(t, start.Add(time.Second), at)
	require.Equal(t, at, c.Now())
	require.Equal(t, start.Add(3*time.Second), c.Advance(2*time.Second))
}

func TestClockOr(t *testing.T) {
	require.Equal(t, SystemClock, ClockOr(nil))
	c := NewFakeClock(time.Unix(0, 0))
	require.Equal(t, Clock(c), ClockOr(c))
}

func TestAggregatedError(t *testing.T) {
	require.NoError(t, (&AggregatedError{}).Add(nil, nil).Aggregate())

	e1, e2 := errors.New("e1"), errors.New("e2")
	err := (&AggregatedError{}).Add(e1).Aggregate()
	require.Equal(t, "e1", err.Error())

	err = (&AggregatedError{}).Add(e1, nil, e2).Aggregate()
	require.Equal(t, "multiple errors:\n  e1\n  e2", err.Error())
	require.ErrorIs(t, err, e2)
}

func TestRunWithContextCancel(t *testing.T) {
	require.Equal(t, errors.New("done"), RunWithContextCancel(context.Background(), nil, func() error {
		return errors.New("done")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	go cancel()
	err := RunWithContextCancel(ctx, func() { close(stopCh) }, func() error {
		<-stopCh
		return errors.New("stopped")
	})
	require.Equal(t, context.Canceled, err)
}

func TestGo(t *testing.T) {
	errCh := make(chan error, 2)
	boom := errors.New("boom")
	Go(context.Background(), func(err error) { errCh <- err },
		RunnableFunc(func(context.Context) error { return boom }),
		RunnableFunc(func(context.Context) error { return context.Canceled }),
	)
	select {
	case err := <-errCh:
		require.Equal(t, boom, err)
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
}

func TestSignalContextRearm(t *testing.T) {
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		ctx, stop := SignalContext(context.Background())
		require.NoError(t, proc.Signal(os.Interrupt))
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: not canceled by signal", i)
		}
		stop()
	}

	ctx, stop := SignalContext(context.Background())
	require.NoError(t, ctx.Err())
	stop()
	stop()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}
