package adbexec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Device runs commands against one device.
// To get an instance, call Device() on a Client.
type Device struct {
	client *Client
	serial string
}

// Device returns a handle for the device with serial. An empty serial means
// whichever single device is attached.
func (c *Client) Device(serial string) *Device {
	return &Device{client: c, serial: serial}
}

func (d *Device) String() string {
	if d.serial == "" {
		return "Device[any]"
	}
	return fmt.Sprintf("Device[%s]", d.serial)
}

func (d *Device) Serial() string {
	return d.serial
}

func (d *Device) State(ctx context.Context) (DeviceState, error) {
	return d.client.State(ctx, d.serial)
}

// DeviceInfo returns the devices -l entry of d.
func (d *Device) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	// adb doesn't actually provide a way to get this for an individual device,
	// so we have to just list devices and find ourselves.
	devices, err := d.client.DeviceList(ctx, true)
	if err != nil {
		return DeviceInfo{}, errors.WithMessage(err, "DeviceInfo")
	}

	for _, deviceInfo := range devices {
		if d.serial == "" || deviceInfo.Serial == d.serial {
			return deviceInfo, nil
		}
	}
	return DeviceInfo{}, errors.Wrapf(ErrDeviceNotFound, "device list doesn't contain serial %s", d.serial)
}

// Shell runs args in a shell on the device, as given.
func (d *Device) Shell(ctx context.Context, args ...string) (string, error) {
	return d.client.Shell(ctx, d.serial, args...)
}

/*
RunCommand runs cmd with args in a shell on the device.

adb joins the arguments with spaces and hands the line to the device's
shell, so an argument containing whitespace would be split. This method
quotes such arguments for you, and will return an error if any of them
contain double quotes.
*/
func (d *Device) RunCommand(ctx context.Context, cmd string, args ...string) (string, error) {
	line, err := prepareCommandLine(cmd, args...)
	if err != nil {
		return "", err
	}
	return d.client.Shell(ctx, d.serial, line)
}

// Reboot reboots a device running Android or recovery into target.
func (d *Device) Reboot(ctx context.Context, target RebootTarget) (string, error) {
	return d.client.RebootADB(ctx, d.serial, target)
}

/*
Remount, from the official adb command’s docs:

	Ask adbd to remount the device's filesystem in read-write mode,
	instead of read-only. This is usually necessary before performing
	an "adb sync" or "adb push" request.
	This request may not succeed on certain builds which do not allow
	that.
*/
func (d *Device) Remount(ctx context.Context) (string, error) {
	return d.client.Remount(ctx, d.serial)
}

func (d *Device) Push(ctx context.Context, local, remote string) (string, error) {
	return d.client.Push(ctx, d.serial, local, remote)
}

func (d *Device) Pull(ctx context.Context, remote, local string) (string, error) {
	return d.client.Pull(ctx, d.serial, remote, local)
}

var whitespaceRegex = regexp.MustCompile(`^\s*$`)

func isBlank(str string) bool {
	return whitespaceRegex.MatchString(str)
}

func containsWhitespace(str string) bool {
	return strings.ContainsAny(str, " \t\v")
}

// prepareCommandLine validates the command and argument strings, quotes
// arguments if required, and joins them into a valid adb command string.
func prepareCommandLine(cmd string, args ...string) (string, error) {
	if isBlank(cmd) {
		return "", errors.Wrap(ErrParsing, "command cannot be empty")
	}

	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, cmd)
	for i, arg := range args {
		if strings.ContainsRune(arg, '"') {
			return "", errors.Wrapf(ErrParsing, "arg at index %d contains an invalid double quote: %s", i, arg)
		}
		if containsWhitespace(arg) {
			arg = fmt.Sprintf("\"%s\"", arg)
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " "), nil
}
