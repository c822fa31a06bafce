package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/d1ced/adbexec"
)

var (
	serial = kingpin.Flag("serial",
		"Connect to device by serial number.").
		Short('s').
		Envar("ADBEXEC_SERIAL").
		String()
	dirFlag = kingpin.Flag("dir",
		"Directory holding adb and fastboot. Defaults to ~/.adbexec/bin.").
		Envar("ADBEXEC_DIR").
		String()
	configFlag = kingpin.Flag("config",
		"Config file. Defaults to ~/.adbexec/config.yaml.").
		Envar("ADBEXEC_CONFIG").
		String()
	debugFlag = kingpin.Flag("debug",
		"Log every tool invocation. --no-debug overrides the config file.").
		Action(func(*kingpin.ParseContext) error {
			debugSet = true
			return nil
		}).
		Bool()
	// debugSet records whether --debug or --no-debug was given.
	debugSet bool
	exitCheckFlag = kingpin.Flag("exit-check",
		"Fail if a tool exits with a non-zero status.").
		Bool()

	devicesCommand = kingpin.Command("devices",
		"List devices.")
	devicesLongFlag = devicesCommand.Flag("long",
		"Include extra detail about devices.").
		Short('l').
		Bool()
	devicesFastbootFlag = devicesCommand.Flag("fastboot",
		"List devices in the bootloader.").
		Bool()

	shellCommand = kingpin.Command("shell",
		"Run a shell command on the device.")
	shellCommandArg = shellCommand.Arg("command",
		"Command to run on device.").
		Strings()

	adbCommand = kingpin.Command("adb",
		"Run adb with the given arguments.")
	adbRemountFlag = adbCommand.Flag("remount",
		"Remount the device read-write first.").
		Bool()
	adbShellFlag = adbCommand.Flag("shell",
		"Run the arguments in a shell on the device.").
		Bool()
	adbArgs = adbCommand.Arg("args",
		"Arguments passed to adb.").
		Required().
		Strings()

	fastbootCommand = kingpin.Command("fastboot",
		"Run fastboot with the given arguments.")
	fastbootArgs = fastbootCommand.Arg("args",
		"Arguments passed to fastboot.").
		Required().
		Strings()

	rebootCommand = kingpin.Command("reboot",
		"Reboot the device.")
	rebootFastbootFlag = rebootCommand.Flag("fastboot",
		"The device is in the bootloader.").
		Bool()
	rebootTargetArg = rebootCommand.Arg("target",
		"android, recovery or bootloader.").
		Default("android").
		Enum("android", "recovery", "bootloader")

	installCommand = kingpin.Command("install-tools",
		"Install adb and fastboot for this OS.")
	installSourceFlag = installCommand.Flag("source",
		"Directory with one subdirectory of tools per OS.").
		String()
	installProgressFlag = installCommand.Flag("progress",
		"Show progress.").
		Short('p').
		Bool()

	watchCommand = kingpin.Command("watch",
		"Print device state changes.")
	watchIntervalFlag = watchCommand.Flag("interval",
		"Polling interval.").
		Default("1s").
		Duration()

	waitCommand = kingpin.Command("wait-for",
		"Wait until the device reaches a state.")
	waitStateArg = waitCommand.Arg("state",
		"device, recovery, sideload or bootloader.").
		Default("device").
		Enum("device", "recovery", "sideload", "bootloader")
	waitTimeoutFlag = waitCommand.Flag("timeout",
		"Give up after this long.").
		Default("2m").
		Duration()

	pushCommand = kingpin.Command("push",
		"Push a file to the device.")
	pushLocalArg = pushCommand.Arg("local",
		"Path of source file.").
		Required().
		String()
	pushRemoteArg = pushCommand.Arg("remote",
		"Path of destination file on device.").
		Required().
		String()

	pullCommand = kingpin.Command("pull",
		"Pull a file from the device.")
	pullRemoteArg = pullCommand.Arg("remote",
		"Path of source file on device.").
		Required().
		String()
	pullLocalArg = pullCommand.Arg("local",
		"Path of destination file.").
		String()

	forwardCommand = kingpin.Command("forward",
		"Forward")
	forwardListFlag = forwardCommand.Flag("list",
		"List forwards").
		Short('l').
		Bool()
	forwardRemoveFlag = forwardCommand.Flag("remove",
		"Remove the forward listening on local.").
		Bool()
	forwardLocalArg = forwardCommand.Arg("local",
		"Local end, e.g. tcp:6100.").
		String()
	forwardRemoteArg = forwardCommand.Arg("remote",
		"Remote end, e.g. tcp:7100.").
		String()

	versionCommand = kingpin.Command("version",
		"Print the adb version.")
)

var client *adbexec.Client

func main() {
	command := kingpin.Parse()

	configPath, required := *configFlag, *configFlag != ""
	if !required {
		configPath = defaultConfigPath()
	}
	fileCfg, err := loadConfig(configPath, required)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	flagCfg := config{Dir: *dirFlag, Source: *installSourceFlag}
	if debugSet {
		flagCfg.Debug = debugFlag
	}
	cfg := flagCfg.merge(fileCfg)
	if cfg.Dir == "" {
		if cfg.Dir, err = adbexec.DefaultDir(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	if cfg.debug() {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.WithFields(logrus.Fields{
		"dir":      cfg.Dir,
		"adb":      cfg.ADB,
		"fastboot": cfg.Fastboot,
		"source":   cfg.Source,
	}).Debug("Parsed Configuration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == installCommand.FullCommand() {
		os.Exit(installTools(ctx, cfg, *installProgressFlag))
	}

	tools, err := resolveTools(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	opts := []adbexec.Option{}
	if *exitCheckFlag {
		opts = append(opts, adbexec.WithExitCheck())
	}
	client = adbexec.New(tools, opts...)

	var exitCode int
	switch command {
	case devicesCommand.FullCommand():
		exitCode = listDevices(ctx, *devicesLongFlag, *devicesFastbootFlag)
	case shellCommand.FullCommand():
		exitCode = runShellCommand(ctx, *shellCommandArg, *serial)
	case adbCommand.FullCommand():
		exitCode = printOutput(client.ADB(ctx, adbexec.CommandOptions{
			Shell:   *adbShellFlag,
			Remount: *adbRemountFlag,
			Serial:  *serial,
		}, *adbArgs...))
	case fastbootCommand.FullCommand():
		exitCode = printOutput(client.Fastboot(ctx, *serial, *fastbootArgs...))
	case rebootCommand.FullCommand():
		exitCode = reboot(ctx, *rebootTargetArg, *rebootFastbootFlag, *serial)
	case watchCommand.FullCommand():
		exitCode = watch(ctx, *watchIntervalFlag)
	case waitCommand.FullCommand():
		exitCode = waitFor(ctx, *waitStateArg, *waitTimeoutFlag, *serial)
	case pushCommand.FullCommand():
		exitCode = printOutput(client.Push(ctx, *serial, *pushLocalArg, *pushRemoteArg))
	case pullCommand.FullCommand():
		local := *pullLocalArg
		if local == "" {
			local = "."
		}
		exitCode = printOutput(client.Pull(ctx, *serial, *pullRemoteArg, local))
	case forwardCommand.FullCommand():
		exitCode = forward(ctx, *forwardListFlag, *forwardRemoveFlag, *forwardLocalArg, *forwardRemoteArg, *serial)
	case versionCommand.FullCommand():
		v, err := client.Version(ctx)
		if v != "" {
			v += "\n"
		}
		exitCode = printOutput(v, err)
	}

	os.Exit(exitCode)
}

// resolveTools prefers paths from the config, then the tools installed in
// cfg.Dir, then $PATH.
func resolveTools(cfg config) (adbexec.Tools, error) {
	tools := adbexec.Tools{ADB: cfg.ADB, Fastboot: cfg.Fastboot}
	if tools.ADB != "" && tools.Fastboot != "" {
		return tools, nil
	}
	found, err := adbexec.Locate(cfg.Dir)
	if err != nil {
		logrus.WithError(err).Debug("tools not installed, searching PATH")
		found, err = adbexec.LookPath()
		if err != nil {
			return adbexec.Tools{}, errors.WithMessage(err, "run install-tools or put adb and fastboot on PATH")
		}
	}
	if tools.ADB == "" {
		tools.ADB = found.ADB
	}
	if tools.Fastboot == "" {
		tools.Fastboot = found.Fastboot
	}
	return tools, nil
}

func printOutput(out string, err error) int {
	fmt.Print(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func installTools(ctx context.Context, cfg config, showProgress bool) int {
	if cfg.Source == "" {
		fmt.Fprintln(os.Stderr, "error: must specify --source")
		kingpin.Usage()
		return 1
	}
	installer := &adbexec.Installer{
		Source: cfg.Source,
		Dir:    cfg.Dir,
		OS:     adbexec.DetectOS(),
		Copy: func(dst io.Writer, src io.Reader, size int64) error {
			return copyWithProgressAndStats(dst, src, int(size), showProgress)
		},
	}
	tools, err := installer.Install(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Printf("adb:\t%s\nfastboot:\t%s\n", tools.ADB, tools.Fastboot)
	return 0
}

func listDevices(ctx context.Context, long, fastboot bool) int {
	if fastboot {
		devices, err := client.FastbootDevices(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		for _, device := range devices {
			fmt.Printf("%s\t%s\n", device.Serial, device.State)
		}
		return 0
	}

	if !long {
		devices, err := client.Devices(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		for _, device := range devices {
			fmt.Println(device)
		}
		return 0
	}

	devices, err := client.DeviceList(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	for _, device := range devices {
		if !device.IsUSB() {
			fmt.Printf("%s\t%s product:%s model:%s device:%s\n",
				device.Serial, device.State, device.Product, device.Model, device.DeviceInfo)
		} else {
			fmt.Printf("%s\t%s usb:%s product:%s model:%s device:%s\n",
				device.Serial, device.State, device.USB, device.Product, device.Model, device.DeviceInfo)
		}
	}
	return 0
}

func runShellCommand(ctx context.Context, commandAndArgs []string, deviceSerial string) int {
	if len(commandAndArgs) == 0 {
		fmt.Fprintln(os.Stderr, "error: no command")
		kingpin.Usage()
		return 1
	}
	return printOutput(client.Shell(ctx, deviceSerial, commandAndArgs...))
}

func reboot(ctx context.Context, targetName string, fastboot bool, deviceSerial string) int {
	target, err := adbexec.ParseRebootTarget(targetName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if fastboot {
		return printOutput(client.RebootFastboot(ctx, deviceSerial, target))
	}
	return printOutput(client.RebootADB(ctx, deviceSerial, target))
}

func watch(ctx context.Context, interval time.Duration) int {
	watcher := client.NewDeviceWatcher(ctx, interval)
	defer watcher.Close()

	for event := range watcher.C() {
		fmt.Printf("%s\t%s -> %s\n", event.Serial, event.OldState, event.NewState)
	}
	if err := watcher.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func waitFor(ctx context.Context, stateName string, timeout time.Duration, deviceSerial string) int {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	if stateName == "bootloader" {
		if deviceSerial == "" {
			fmt.Fprintln(os.Stderr, "error: waiting for the bootloader needs --serial")
			return 1
		}
		err = client.WaitForFastboot(ctx, deviceSerial, time.Second)
	} else {
		err = client.WaitForState(ctx, deviceSerial, adbexec.ParseDeviceState(stateName), time.Second)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func forward(ctx context.Context, list, remove bool, local, remote, deviceSerial string) int {
	switch {
	case list:
		fws, err := client.ForwardList(ctx, deviceSerial)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		for _, fw := range fws {
			fmt.Printf("%s %s %s\n", fw.Serial, fw.Local, fw.Remote)
		}
		return 0
	case remove:
		if local == "" {
			if err := client.ForwardRemoveAll(ctx, deviceSerial); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return 1
			}
			return 0
		}
	}

	localSpec, err := adbexec.ParseForwardSpec(local)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if remove {
		err = client.ForwardRemove(ctx, deviceSerial, localSpec)
	} else {
		var remoteSpec adbexec.ForwardSpec
		if remoteSpec, err = adbexec.ParseForwardSpec(remote); err == nil {
			err = client.Forward(ctx, deviceSerial, localSpec, remoteSpec)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// copyWithProgressAndStats copies src to dst.
// If showProgress is true and size is positive, a progress bar is shown.
// After copying, final stats about the transfer speed and size are shown.
// Progress and stats are printed to stderr.
func copyWithProgressAndStats(dst io.Writer, src io.Reader, size int, showProgress bool) error {
	var progress *pb.ProgressBar
	if showProgress && size > 0 {
		progress = pb.New(size)
		// Write to stderr in case dst is stdout.
		progress.Output = os.Stderr
		progress.ShowSpeed = true
		progress.ShowPercent = true
		progress.ShowTimeLeft = true
		progress.SetUnits(pb.U_BYTES)
		progress.Start()
		dst = io.MultiWriter(dst, progress)
	}

	startTime := time.Now()
	copied, err := io.Copy(dst, src)

	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	duration := time.Since(startTime)
	rate := int64(float64(copied) / duration.Seconds())
	fmt.Fprintf(os.Stderr, "%d B/s (%d bytes in %s)\n", rate, copied, duration)

	return nil
}

func init() {
	kingpin.CommandLine.Help = strings.TrimSpace(`
Control Android devices through the adb and fastboot tools.`)
}
