package adbexec

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceList(t *testing.T) {
	devs, err := parseDeviceList(strings.NewReader(`List of devices attached
192.168.56.101:5555	device
05856558	offline

`), parseDeviceShort)

	require.NoError(t, err)
	assert.Len(t, devs, 2)
	assert.Equal(t, "192.168.56.101:5555", devs[0].Serial)
	assert.Equal(t, StateOnline, devs[0].State)
	assert.Equal(t, "05856558", devs[1].Serial)
	assert.Equal(t, StateOffline, devs[1].State)
}

func TestParseDeviceListSkipsServerMessages(t *testing.T) {
	devs, err := parseDeviceList(strings.NewReader(`* daemon not running; starting now at tcp:5037
* daemon started successfully
List of devices attached
emulator-5554	device
`), parseDeviceShort)

	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "emulator-5554", devs[0].Serial)
}

func TestParseDevice(t *testing.T) {
	var tests = []struct {
		name      string
		parse     func(string) (DeviceInfo, error)
		parameter string
		want      DeviceInfo
	}{{
		name:      "Short",
		parse:     parseDeviceShort,
		parameter: "192.168.56.101:5555	device\n",
		want:      DeviceInfo{Serial: "192.168.56.101:5555", State: StateOnline},
	}, {
		name:      "Long",
		parse:     parseDeviceLong,
		parameter: "SERIAL    device product:PRODUCT model:MODEL device:DEVICE\n",
		want: DeviceInfo{
			Serial:     "SERIAL",
			State:      StateOnline,
			Product:    "PRODUCT",
			Model:      "MODEL",
			DeviceInfo: "DEVICE"},
	}, {
		name:      "LongUSB",
		parse:     parseDeviceLong,
		parameter: "SERIAL    device usb:1234 product:PRODUCT model:MODEL device:DEVICE transport_id:7\n",
		want: DeviceInfo{
			Serial:      "SERIAL",
			State:       StateOnline,
			Product:     "PRODUCT",
			Model:       "MODEL",
			DeviceInfo:  "DEVICE",
			TransportID: "7",
			USB:         "1234"},
	}, {
		name:      "LongUnauthorized",
		parse:     parseDeviceLong,
		parameter: "SERIAL    unauthorized usb:1-2 transport_id:4",
		want: DeviceInfo{
			Serial:      "SERIAL",
			State:       StateUnauthorized,
			TransportID: "4",
			USB:         "1-2"},
	}, {
		name:      "Recovery",
		parse:     parseDeviceShort,
		parameter: "SERIAL\trecovery",
		want:      DeviceInfo{Serial: "SERIAL", State: StateRecovery},
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev, err := test.parse(test.parameter)
			require.NoError(t, err)
			assert.Equal(t, test.want, dev)
		})
	}
}

func TestParseDeviceMalformed(t *testing.T) {
	_, err := parseDeviceShort("SERIAL")
	assert.Equal(t, ErrParsing, errors.Cause(err))

	_, err = parseDeviceLong("")
	assert.Equal(t, ErrParsing, errors.Cause(err))
}

func TestParseDeviceState(t *testing.T) {
	for _, state := range []DeviceState{
		StateUnauthorized, StateOffline, StateOnline,
		StateBootloader, StateRecovery, StateSideload, StateFastboot,
	} {
		assert.Equal(t, state, ParseDeviceState(state.String()))
	}
	assert.Equal(t, StateDisconnected, ParseDeviceState(""))
	assert.Equal(t, StateInvalid, ParseDeviceState("no permissions"))
}
