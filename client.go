package adbexec

import (
	"bufio"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// deviceListHeader starts the first line of adb devices output.
const deviceListHeader = "List "

// Client runs adb and fastboot. It holds no state besides the tool paths, so
// it is safe for concurrent use. Every call starts fresh processes.
// Use New to create one.
type Client struct {
	tools     Tools
	runner    Runner
	log       logrus.FieldLogger
	exitCheck bool
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the Runner used to start processes.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger invocations are logged to at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithExitCheck makes every call return an *ExitError when the tool exits
// with a non-zero status. Without it exit codes are ignored.
func WithExitCheck() Option {
	return func(c *Client) { c.exitCheck = true }
}

// New creates a Client for tools.
func New(tools Tools, opts ...Option) *Client {
	c := &Client{
		tools:  tools,
		runner: ExecRunner{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools returns the tool paths c was created with.
func (c *Client) Tools() Tools {
	return c.tools
}

// CommandOptions controls how ADB builds its invocation.
type CommandOptions struct {
	// Shell prefixes the arguments with the shell keyword.
	Shell bool
	// Remount runs adb remount to completion before the command.
	Remount bool
	// Serial selects the device. Empty means any device.
	Serial string
}

// ADB runs adb [-s <serial>] [shell] args... and returns its output, every
// line terminated with "\n".
//
// If opts.Remount is set, adb [-s <serial>] remount is run first and its
// output is read until EOF and discarded before the command is started.
func (c *Client) ADB(ctx context.Context, opts CommandOptions, args ...string) (string, error) {
	if opts.Remount {
		if _, err := c.run(ctx, c.tools.ADB, withSerial(opts.Serial, "remount")); err != nil {
			return "", errors.WithMessage(err, "remount")
		}
	}

	cmd := make([]string, 0, len(args)+1)
	if opts.Shell {
		cmd = append(cmd, "shell")
	}
	cmd = append(cmd, args...)
	return c.run(ctx, c.tools.ADB, withSerial(opts.Serial, cmd...))
}

// Shell runs args in a shell on the device.
func (c *Client) Shell(ctx context.Context, serial string, args ...string) (string, error) {
	return c.ADB(ctx, CommandOptions{Shell: true, Serial: serial}, args...)
}

// Fastboot runs fastboot [-s <serial>] args... and returns its output.
func (c *Client) Fastboot(ctx context.Context, serial string, args ...string) (string, error) {
	return c.run(ctx, c.tools.Fastboot, withSerial(serial, args...))
}

// RebootADB reboots a device running Android or recovery into target.
// It does not work for devices in the bootloader, use RebootFastboot.
func (c *Client) RebootADB(ctx context.Context, serial string, target RebootTarget) (string, error) {
	args, err := target.adbArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, c.tools.ADB, withSerial(serial, args...))
}

// RebootFastboot reboots a device in the bootloader into target.
func (c *Client) RebootFastboot(ctx context.Context, serial string, target RebootTarget) (string, error) {
	args, err := target.fastbootArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, c.tools.Fastboot, withSerial(serial, args...))
}

// Devices returns the lines of adb devices verbatim, typically one
// "<serial>\t<state>" per attached device. Only the header line is dropped;
// use DeviceList for parsed entries.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	out, err := c.ADB(ctx, CommandOptions{}, "devices")
	if err != nil {
		return nil, err
	}

	devices := []string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, deviceListHeader) {
			continue
		}
		devices = append(devices, line)
	}
	return devices, scanner.Err()
}

// DeviceList returns the parsed adb devices output. With long set, the
// product, model and transport are filled in too.
func (c *Client) DeviceList(ctx context.Context, long bool) ([]DeviceInfo, error) {
	args, parse := []string{"devices"}, parseDeviceShort
	if long {
		args, parse = []string{"devices", "-l"}, parseDeviceLong
	}
	out, err := c.ADB(ctx, CommandOptions{}, args...)
	if err != nil {
		return nil, err
	}
	devices, err := parseDeviceList(strings.NewReader(out), parse)
	return devices, errors.WithMessage(err, "DeviceList")
}

// FastbootDevices returns the devices fastboot can see.
func (c *Client) FastbootDevices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := c.Fastboot(ctx, "", "devices")
	if err != nil {
		return nil, err
	}
	devices, err := parseDeviceList(strings.NewReader(out), parseDeviceShort)
	return devices, errors.WithMessage(err, "FastbootDevices")
}

// State asks adb for the state of the device. A device adb doesn't know
// about is StateDisconnected.
func (c *Client) State(ctx context.Context, serial string) (DeviceState, error) {
	out, err := c.ADB(ctx, CommandOptions{Serial: serial}, "get-state")
	if err != nil {
		return StateInvalid, errors.WithMessage(err, "State")
	}
	return ParseDeviceState(strings.TrimSpace(out)), nil
}

// Version returns the first line of adb version.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.ADB(ctx, CommandOptions{}, "version")
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return out, nil
}

// StartServer starts the adb server if it isn't running.
func (c *Client) StartServer(ctx context.Context) error {
	_, err := c.ADB(ctx, CommandOptions{}, "start-server")
	return errors.WithMessage(err, "StartServer")
}

// KillServer tells the adb server to quit.
func (c *Client) KillServer(ctx context.Context) error {
	_, err := c.ADB(ctx, CommandOptions{}, "kill-server")
	return errors.WithMessage(err, "KillServer")
}

// Remount asks adbd to remount the device's partitions read-write.
// This request may not succeed on builds which do not allow that.
func (c *Client) Remount(ctx context.Context, serial string) (string, error) {
	return c.ADB(ctx, CommandOptions{Serial: serial}, "remount")
}

// Push copies the local file to remote on the device.
func (c *Client) Push(ctx context.Context, serial, local, remote string) (string, error) {
	return c.ADB(ctx, CommandOptions{Serial: serial}, "push", local, remote)
}

// Pull copies remote on the device to the local file.
func (c *Client) Pull(ctx context.Context, serial, remote, local string) (string, error) {
	return c.ADB(ctx, CommandOptions{Serial: serial}, "pull", remote, local)
}

// Install installs the apk. With reinstall an installed app is replaced,
// keeping its data.
func (c *Client) Install(ctx context.Context, serial, apk string, reinstall bool) (string, error) {
	args := []string{"install"}
	if reinstall {
		args = append(args, "-r")
	}
	return c.ADB(ctx, CommandOptions{Serial: serial}, append(args, apk)...)
}

// run starts tool with args through the runner.
func (c *Client) run(ctx context.Context, tool string, args []string) (string, error) {
	log := c.log.WithFields(logrus.Fields{"cmd": tool, "args": args})
	res, err := c.runner.Run(ctx, tool, args...)
	if err != nil {
		log.WithError(err).Debug("command failed")
		return res.Output, err
	}
	log.WithField("exit_code", res.ExitCode).Debug("command finished")
	if c.exitCheck && res.ExitCode != 0 {
		return res.Output, &ExitError{
			Command:  commandLine(tool, args),
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}
	return res.Output, nil
}

// withSerial returns a new argument vector of the device selector followed
// by args. An empty serial selects any device.
func withSerial(serial string, args ...string) []string {
	argv := make([]string, 0, len(args)+2)
	if serial != "" {
		argv = append(argv, "-s", serial)
	}
	return append(argv, args...)
}
