package access

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/r308"
)

// do runs one sensor command, resending it on link failures.
// Sensor statuses are returned as is.
func (f *Fingerprint) do(ctx context.Context, op string, fn func() (r308.Status, error)) (r308.Status, error) {
	var err error
	for attempt := 0; attempt <= f.opts.LinkRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return r308.StatusNone, cerr
		}
		if attempt > 0 {
			glog.Warningf("%s: resend after %v", op, err)
		}
		var st r308.Status
		if st, err = fn(); err == nil || !r308.IsLinkError(err) {
			return st, err
		}
	}
	return r308.StatusNone, fmt.Errorf("%s: %w", op, err)
}

// expect is do requiring StatusOK.
func (f *Fingerprint) expect(ctx context.Context, op string, fn func() (r308.Status, error)) error {
	st, err := f.do(ctx, op, fn)
	if err != nil {
		return err
	}
	if st != r308.StatusOK {
		return &StatusError{Op: op, Status: st}
	}
	return nil
}

// capture polls CaptureImage until a finger is scanned.
// NoFinger and link failures consume an attempt, other statuses abort.
func (f *Fingerprint) capture(ctx context.Context, op string) error {
	return f.poll(ctx, op, func(st r308.Status) (bool, error) {
		switch st {
		case r308.StatusOK:
			return true, nil
		case r308.StatusNoFinger:
			return false, nil
		}
		return false, &StatusError{Op: op, Status: st}
	})
}

// waitRemoved polls CaptureImage until the window is empty, so the
// second scan comes from a new placement.
func (f *Fingerprint) waitRemoved(ctx context.Context) error {
	return f.poll(ctx, "wait finger removed", func(st r308.Status) (bool, error) {
		return st == r308.StatusNoFinger, nil
	})
}

// poll gives up with ErrTimeout. If the link was failing when the attempts
// ran out, the last link error is wrapped too, so IsLinkError tells an
// unresponsive sensor from a finger that never showed up.
func (f *Fingerprint) poll(ctx context.Context, op string, done func(r308.Status) (bool, error)) error {
	var linkErr error
	for attempt := 0; attempt < f.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.opts.Clock.After(f.opts.PollInterval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		st, err := f.sensor.CaptureImage()
		if err != nil {
			if !r308.IsLinkError(err) {
				return err
			}
			glog.V(1).Infof("%s: %v", op, err)
			linkErr = err
			continue
		}
		linkErr = nil
		ok, err := done(st)
		if err != nil || ok {
			return err
		}
	}
	if linkErr != nil {
		return fmt.Errorf("%s: %w (last link error: %w)", op, ErrTimeout, linkErr)
	}
	return fmt.Errorf("%s: %w", op, ErrTimeout)
}
