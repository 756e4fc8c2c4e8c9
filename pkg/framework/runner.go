package framework

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// SignalContext derives a context which is canceled on Ctrl-C or SIGTERM.
// A second signal before the returned CancelFunc is called exits the
// process. The CancelFunc stops watching signals, so a new SignalContext
// can be armed afterwards.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(doneCh)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		glog.Info("stop requested")
		cancel()
		select {
		case <-sigCh:
			glog.Error("stop requested again, force exit")
			os.Exit(1)
		case <-stopCh:
		}
	}()
	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			cancel()
			close(stopCh)
			<-doneCh
		})
	}
}

// Go runs the Runnables in the background and reports every
// error except context.Canceled to onErr.
func Go(ctx context.Context, onErr func(error), runners ...Runnable) {
	for _, runner := range runners {
		go func(runner Runnable) {
			if err := runner.Run(ctx); err != nil && err != context.Canceled && onErr != nil {
				onErr(err)
			}
		}(runner)
	}
}

// RunWithContextCancel runs a func which doesn't accept a context.
// onCancel is called only when the context is canceled.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return context.Canceled
	case err := <-errCh:
		return err
	}
}
