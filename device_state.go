package adbexec

// DeviceState represents the state adb or fastboot reports for a device.
// A device can be communicated with over adb when it's in StateOnline.
// A USB device will make the following state transitions:
//
//	Plugged in: StateDisconnected->StateOffline->StateOnline
//	Unplugged:  StateOnline->StateDisconnected
type DeviceState uint8

const (
	StateInvalid DeviceState = iota
	StateUnauthorized
	StateDisconnected
	StateOffline
	StateOnline
	StateBootloader
	StateRecovery
	StateSideload
	// StateFastboot is reported by fastboot devices.
	StateFastboot
)

var deviceStateStrings = map[string]DeviceState{
	"":             StateDisconnected,
	"offline":      StateOffline,
	"device":       StateOnline,
	"unauthorized": StateUnauthorized,
	"bootloader":   StateBootloader,
	"recovery":     StateRecovery,
	"sideload":     StateSideload,
	"fastboot":     StateFastboot,
}

// ParseDeviceState returns StateInvalid for unknown strings.
func ParseDeviceState(str string) DeviceState {
	if state, ok := deviceStateStrings[str]; ok {
		return state
	}
	return StateInvalid
}

func (s DeviceState) String() string {
	switch s {
	case StateUnauthorized:
		return "unauthorized"
	case StateDisconnected:
		return "disconnected"
	case StateOffline:
		return "offline"
	case StateOnline:
		return "device"
	case StateBootloader:
		return "bootloader"
	case StateRecovery:
		return "recovery"
	case StateSideload:
		return "sideload"
	case StateFastboot:
		return "fastboot"
	default:
		return "invalid"
	}
}
