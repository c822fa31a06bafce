package adbexec

import "github.com/pkg/errors"

// RebootTarget is the mode a device is rebooted into.
type RebootTarget uint8

const (
	RebootAndroid RebootTarget = iota
	RebootRecovery
	RebootBootloader
)

func (r RebootTarget) String() string {
	switch r {
	case RebootAndroid:
		return "android"
	case RebootRecovery:
		return "recovery"
	case RebootBootloader:
		return "bootloader"
	default:
		return "<invalid RebootTarget>"
	}
}

// ParseRebootTarget is the inverse of RebootTarget.String.
func ParseRebootTarget(s string) (RebootTarget, error) {
	switch s {
	case "android", "":
		return RebootAndroid, nil
	case "recovery":
		return RebootRecovery, nil
	case "bootloader":
		return RebootBootloader, nil
	}
	return 0, errors.Wrapf(ErrInvalidTarget, "%q", s)
}

// adbArgs returns the adb subcommand rebooting into r.
func (r RebootTarget) adbArgs() ([]string, error) {
	switch r {
	case RebootAndroid:
		return []string{"reboot"}, nil
	case RebootRecovery:
		return []string{"reboot", "recovery"}, nil
	case RebootBootloader:
		return []string{"reboot-bootloader"}, nil
	}
	return nil, errors.Wrapf(ErrInvalidTarget, "%d", r)
}

// fastbootArgs returns the fastboot subcommand rebooting into r.
func (r RebootTarget) fastbootArgs() ([]string, error) {
	switch r {
	case RebootAndroid:
		return []string{"reboot"}, nil
	case RebootRecovery:
		// Needs fastboot from platform-tools 29 or newer.
		return []string{"reboot", "recovery"}, nil
	case RebootBootloader:
		return []string{"reboot-bootloader"}, nil
	}
	return nil, errors.Wrapf(ErrInvalidTarget, "%d", r)
}
