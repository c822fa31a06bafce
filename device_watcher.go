package adbexec

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// maxPollErrors is how many polls in a row may fail before a DeviceWatcher
// gives up.
const maxPollErrors = 5

// DeviceStateChangedEvent represents a device state transition.
// Contains the device’s old and new states, but also provides methods to
// query the type of state transition.
type DeviceStateChangedEvent struct {
	Serial   string
	OldState DeviceState
	NewState DeviceState
}

// CameOnline returns true if this event represents a device coming online.
func (s DeviceStateChangedEvent) CameOnline() bool {
	return s.OldState != StateOnline && s.NewState == StateOnline
}

// WentOffline returns true if this event represents a device going offline.
func (s DeviceStateChangedEvent) WentOffline() bool {
	return s.OldState == StateOnline && s.NewState != StateOnline
}

// DeviceWatcher publishes device status change events. It polls adb devices
// and compares each listing with the previous one.
// If polling fails, the adb server is started before the next poll.
type DeviceWatcher struct {
	client *Client

	// If an error occurs, it is stored here and eventChan is closed immediately after.
	err atomic.Value

	eventChan chan DeviceStateChangedEvent
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDeviceWatcher starts a watcher polling every interval until ctx is
// done or Close is called. Devices attached when the watcher starts are
// reported as coming from StateDisconnected.
func (c *Client) NewDeviceWatcher(ctx context.Context, interval time.Duration) *DeviceWatcher {
	ctx, cancel := context.WithCancel(ctx)
	w := &DeviceWatcher{
		client:    c,
		eventChan: make(chan DeviceStateChangedEvent),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go w.publishDevices(ctx, interval)
	return w
}

// C returns a channel than can be received on to get events.
// If an unrecoverable error occurs, or Close is called, the channel will be closed.
func (w *DeviceWatcher) C() <-chan DeviceStateChangedEvent {
	return w.eventChan
}

// Err returns the error that caused the channel returned by C to be closed,
// if C is closed. It is nil if the watcher was stopped by Close or its
// context. If C is not closed, its return value is undefined.
func (w *DeviceWatcher) Err() error {
	if err, ok := w.err.Load().(error); ok {
		return err
	}
	return nil
}

// Close stops the watcher and waits until the channel returned by C is closed.
func (w *DeviceWatcher) Close() {
	w.cancel()
	<-w.done
}

func (w *DeviceWatcher) publishDevices(ctx context.Context, interval time.Duration) {
	defer close(w.done)
	defer close(w.eventChan)

	ticker := backoff.NewTicker(backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	defer ticker.Stop()

	lastState := make(map[string]DeviceState)
	failures := 0
	for range ticker.C {
		states, err := w.pollStates(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			if failures >= maxPollErrors {
				w.err.Store(errors.WithMessagef(err, "giving up after %d failed polls", failures))
				return
			}
			w.client.log.WithError(err).Warn("[DeviceWatcher] polling devices failed, starting server")
			if err := w.client.StartServer(ctx); err != nil {
				w.client.log.WithError(err).Warn("[DeviceWatcher] error starting server")
			}
			continue
		}
		failures = 0

		for _, event := range calculateStateDiffs(lastState, states) {
			select {
			case w.eventChan <- event:
			case <-ctx.Done():
				return
			}
		}
		lastState = states
	}
}

func (w *DeviceWatcher) pollStates(ctx context.Context) (map[string]DeviceState, error) {
	devices, err := w.client.DeviceList(ctx, false)
	if err != nil {
		return nil, err
	}
	states := make(map[string]DeviceState, len(devices))
	for _, dev := range devices {
		states[dev.Serial] = dev.State
	}
	return states, nil
}

func calculateStateDiffs(oldStates, newStates map[string]DeviceState) []DeviceStateChangedEvent {
	events := make([]DeviceStateChangedEvent, 0, len(newStates))
	for serial, oldState := range oldStates {
		newState, ok := newStates[serial]

		if ok {
			if oldState != newState {
				// Device present in both lists: state changed.
				events = append(events, DeviceStateChangedEvent{serial, oldState, newState})
			}
		} else if oldState != StateDisconnected {
			// Device only present in old list: device removed.
			events = append(events, DeviceStateChangedEvent{serial, oldState, StateDisconnected})
		}
	}

	for serial, newState := range newStates {
		if _, ok := oldStates[serial]; !ok {
			// Device only present in new list: device added.
			events = append(events, DeviceStateChangedEvent{serial, StateDisconnected, newState})
		}
	}

	return events
}
