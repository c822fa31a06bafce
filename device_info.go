package adbexec

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// DeviceInfo is one line of adb devices or fastboot devices output.
type DeviceInfo struct {
	// Always set.
	Serial string
	State  DeviceState
	// Product, model, device and transport id are not set in the short form.
	Product     string
	Model       string
	DeviceInfo  string
	TransportID string
	// Only set for devices connected via USB.
	USB string
}

func newDevice(serial string, state string, attrs map[string]string) (DeviceInfo, error) {
	if serial == "" {
		return DeviceInfo{}, errors.Wrap(ErrParsing, "device serial cannot be blank")
	}
	return DeviceInfo{
		Serial:      serial,
		State:       ParseDeviceState(state),
		Product:     attrs["product"],
		Model:       attrs["model"],
		DeviceInfo:  attrs["device"],
		TransportID: attrs["transport_id"],
		USB:         attrs["usb"],
	}, nil
}

// IsUSB returns true if the device is connected via USB.
func (d DeviceInfo) IsUSB() bool {
	return d.USB != ""
}

// isDeviceLine reports whether line of a device listing names a device.
// The header, blank lines and server chatter such as
// "* daemon started successfully" are not.
func isDeviceLine(line string) bool {
	return !strings.HasPrefix(line, deviceListHeader) &&
		!strings.HasPrefix(line, "*") &&
		strings.TrimSpace(line) != ""
}

func parseDeviceList(list io.Reader, lineParseFunc func(string) (DeviceInfo, error)) ([]DeviceInfo, error) {
	devices := []DeviceInfo{}
	scanner := bufio.NewScanner(list)

	for scanner.Scan() {
		line := scanner.Text()
		if !isDeviceLine(line) {
			continue
		}
		device, err := lineParseFunc(line)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}

	return devices, scanner.Err()
}

func parseDeviceShort(line string) (DeviceInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return DeviceInfo{}, errors.Wrapf(ErrParsing,
			"malformed device line, expected 2 fields but found %d", len(fields))
	}
	return newDevice(fields[0], fields[1], map[string]string{})
}

func parseDeviceLong(line string) (DeviceInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return DeviceInfo{}, errors.Wrapf(ErrParsing,
			"malformed device line, expected at least 2 fields but found %d", len(fields))
	}

	attrs := parseDeviceAttributes(fields[2:])
	return newDevice(fields[0], fields[1], attrs)
}

func parseDeviceAttributes(fields []string) map[string]string {
	attrs := map[string]string{}
	for _, field := range fields {
		key, val := parseKeyVal(field)
		if key == "" {
			continue
		}
		attrs[key] = val
	}
	return attrs
}

// Parses a key:val pair and returns key, val.
func parseKeyVal(pair string) (string, string) {
	split := strings.SplitN(pair, ":", 2)
	if len(split) != 2 {
		return "", ""
	}
	return split[0], split[1]
}
