package adbexec

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateStateDiffs(t *testing.T) {
	var tests = []struct {
		name     string
		old, new map[string]DeviceState
		want     []DeviceStateChangedEvent
	}{{
		name: "Added",
		old:  map[string]DeviceState{},
		new:  map[string]DeviceState{"A": StateOnline},
		want: []DeviceStateChangedEvent{{"A", StateDisconnected, StateOnline}},
	}, {
		name: "Removed",
		old:  map[string]DeviceState{"A": StateOnline},
		new:  map[string]DeviceState{},
		want: []DeviceStateChangedEvent{{"A", StateOnline, StateDisconnected}},
	}, {
		name: "Changed",
		old:  map[string]DeviceState{"A": StateOffline, "B": StateOnline},
		new:  map[string]DeviceState{"A": StateOnline, "B": StateOnline},
		want: []DeviceStateChangedEvent{{"A", StateOffline, StateOnline}},
	}, {
		name: "Unchanged",
		old:  map[string]DeviceState{"A": StateOnline},
		new:  map[string]DeviceState{"A": StateOnline},
		want: []DeviceStateChangedEvent{},
	}, {
		name: "Mixed",
		old:  map[string]DeviceState{"A": StateOnline, "B": StateUnauthorized},
		new:  map[string]DeviceState{"B": StateOnline, "C": StateOffline},
		want: []DeviceStateChangedEvent{
			{"A", StateOnline, StateDisconnected},
			{"B", StateUnauthorized, StateOnline},
			{"C", StateDisconnected, StateOffline},
		},
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := calculateStateDiffs(test.old, test.new)
			sort.Slice(got, func(i, j int) bool { return got[i].Serial < got[j].Serial })
			assert.Equal(t, test.want, got)
		})
	}
}

func TestDeviceStateChangedEvent(t *testing.T) {
	assert.True(t, DeviceStateChangedEvent{"A", StateOffline, StateOnline}.CameOnline())
	assert.False(t, DeviceStateChangedEvent{"A", StateOffline, StateOnline}.WentOffline())
	assert.True(t, DeviceStateChangedEvent{"A", StateOnline, StateDisconnected}.WentOffline())
}

func TestDeviceWatcher(t *testing.T) {
	listings := []string{
		"List of devices attached\n",
		"List of devices attached\nA\toffline\n",
		"List of devices attached\nA\tdevice\n",
		"List of devices attached\n",
	}
	polls := 0
	runner := &fakeRunner{respond: func(name string, args []string) (Result, error) {
		out := listings[len(listings)-1]
		if polls < len(listings) {
			out = listings[polls]
		}
		polls++
		return Result{Output: out}, nil
	}}
	c := New(testTools, WithRunner(runner))

	w := c.NewDeviceWatcher(context.Background(), time.Millisecond)
	var events []DeviceStateChangedEvent
	for event := range w.C() {
		events = append(events, event)
		if len(events) == 3 {
			w.Close()
		}
	}

	assert.NoError(t, w.Err())
	assert.Equal(t, []DeviceStateChangedEvent{
		{"A", StateDisconnected, StateOffline},
		{"A", StateOffline, StateOnline},
		{"A", StateOnline, StateDisconnected},
	}, events)
}

func TestDeviceWatcherGivesUp(t *testing.T) {
	runner := &fakeRunner{respond: func(name string, args []string) (Result, error) {
		return Result{ExitCode: -1}, errors.New("fork/exec adb: permission denied")
	}}
	c := New(testTools, WithRunner(runner))

	w := c.NewDeviceWatcher(context.Background(), time.Millisecond)
	for range w.C() {
		t.Fatal("unexpected event")
	}
	require.Error(t, w.Err())
	assert.Contains(t, w.Err().Error(), "permission denied")

	// Every failed poll but the last is followed by a server start.
	var starts int
	for _, call := range runner.recorded() {
		if len(call.args) == 1 && call.args[0] == "start-server" {
			starts++
		}
	}
	assert.Equal(t, maxPollErrors-1, starts)
}

func TestDeviceWatcherStopsWithContext(t *testing.T) {
	runner := newFakeRunner(map[string]string{"devices": "List of devices attached\n"})
	c := New(testTools, WithRunner(runner))
	ctx, cancel := context.WithCancel(context.Background())

	w := c.NewDeviceWatcher(ctx, time.Millisecond)
	cancel()
	for range w.C() {
	}
	assert.NoError(t, w.Err())
	w.Close()
}
