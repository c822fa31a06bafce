package adbexec

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// WaitForState polls the device every interval until adb reports want, or
// ctx is done. A non-zero exit of adb, as for a device that is not attached
// yet, is retried. Failures to run adb end the wait immediately.
func (c *Client) WaitForState(ctx context.Context, serial string, want DeviceState, interval time.Duration) error {
	op := func() error {
		state, err := c.State(ctx, serial)
		if err != nil {
			if _, ok := errors.Cause(err).(*ExitError); ok {
				return err
			}
			return backoff.Permanent(err)
		}
		if state != want {
			return errors.Errorf("device %q is %s, want %s", serial, state, want)
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	return errors.WithMessage(err, "WaitForState")
}

// WaitForFastboot polls fastboot devices every interval until the device
// shows up, or ctx is done. A device rebooting into the bootloader may take
// some seconds to get there.
func (c *Client) WaitForFastboot(ctx context.Context, serial string, interval time.Duration) error {
	op := func() error {
		devices, err := c.FastbootDevices(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		for _, dev := range devices {
			if dev.Serial == serial {
				return nil
			}
		}
		return errors.Errorf("device %q not in bootloader", serial)
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	return errors.WithMessage(err, "WaitForFastboot")
}
