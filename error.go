package adbexec

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error values used by this package
var (
	// adb or fastboot could not be found where they were expected.
	ErrToolNotFound = errors.New("tool not found")
	// The reboot target is not one of the known RebootTarget values.
	ErrInvalidTarget = errors.New("invalid reboot target")
	// Tool output did not have the expected format.
	ErrParsing = errors.New("parse error")
	// The device is not in the device list.
	ErrDeviceNotFound = errors.New("device not found")
)

// ExitError is returned by a Client created WithExitCheck when a tool exits
// with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exit code %d", e.Command, e.ExitCode)
}
