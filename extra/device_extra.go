package extra

import (
	"bufio"
	"context"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/d1ced/adbexec"
)

type Process struct {
	User string
	Pid  int
	Name string
}

// ListProcesses return list of Process
func ListProcesses(ctx context.Context, c *adbexec.Client, serial string) ([]Process, error) {
	// example output of command "ps":
	//     USER  PID  PPID  VSIZE  RSS  WCHAN     PC         NAME
	//     root    1     0    684  540  ffffffff  00000000 S /init
	//     root    2     0      0    0  ffffffff  00000000 S kthreadd
	// newer toybox ps names the state column and needs -A to list everything.
	out, err := c.Shell(ctx, serial, "ps", "-A")
	if err != nil {
		return nil, err
	}
	if strings.Contains(out, "bad pid '-A'") {
		if out, err = c.Shell(ctx, serial, "ps"); err != nil {
			return nil, err
		}
	}
	return parseProcesses(out)
}

func parseProcesses(out string) ([]Process, error) {
	var (
		fieldNames []string
		pp         = make([]Process, 0, 10)
		scanner    = bufio.NewScanner(strings.NewReader(out))
	)

	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		if fieldNames == nil {
			// as first row
			fieldNames = fields
			continue
		}
		if len(fields) < len(fieldNames) {
			return nil, errors.Wrapf(adbexec.ErrParsing, "unexpected ps line %q", scanner.Text())
		}

		var process Process

		for index, name := range fieldNames {
			value := fields[index]
			switch strings.ToUpper(name) {
			case "PID":
				process.Pid, _ = strconv.Atoi(value)
			case "NAME":
				process.Name = fields[len(fields)-1]
			case "USER":
				process.User = value
			}
		}
		if process.Pid == 0 {
			continue
		}
		pp = append(pp, process)
	}
	return pp, scanner.Err()
}

// KillProcessByName sends sig to every process called name.
func KillProcessByName(ctx context.Context, c *adbexec.Client, serial, name string, sig syscall.Signal) error {
	pp, err := ListProcesses(ctx, c, serial)
	if err != nil {
		return err
	}
	for _, p := range pp {
		if p.Name != name {
			continue
		}
		// the exit code of kill is lost through adb shell on old devices,
		// so it is echoed.
		out, err := c.Shell(ctx, serial, "kill", "-"+strconv.Itoa(int(sig)), strconv.Itoa(p.Pid), ";", "echo", ":$?")
		if err != nil {
			return err
		}
		if code := exitCodeOf(out); code != 0 {
			return errors.Errorf("kill %d exit code %d", p.Pid, code)
		}
	}
	return nil
}

// exitCodeOf returns the number after the last colon of out, -1 if there is
// none.
func exitCodeOf(out string) int {
	out = strings.TrimSpace(out)
	i := strings.LastIndexByte(out, ':')
	if i < 0 {
		return -1
	}
	code, err := strconv.Atoi(out[i+1:])
	if err != nil {
		return -1
	}
	return code
}

type PackageInfo struct {
	Name    string
	Path    string
	Version struct {
		Code int
		Name string
	}
}

var (
	rePkgPath = regexp.MustCompile(`codePath=([^\s]+)`)
	reVerCode = regexp.MustCompile(`versionCode=(\d+)`)
	reVerName = regexp.MustCompile(`versionName=([^\s]+)`)

	ErrPackageNotExist = errors.New("package does not exist")
)

// StatPackage returns PackageInfo
// If package not found, err will be ErrPackageNotExist
func StatPackage(ctx context.Context, c *adbexec.Client, serial, packageName string) (PackageInfo, error) {
	out, err := c.Shell(ctx, serial, "dumpsys", "package", packageName)
	if err != nil {
		return PackageInfo{}, err
	}
	return parsePackage(packageName, out)
}

func parsePackage(packageName, out string) (PackageInfo, error) {
	matches := rePkgPath.FindStringSubmatch(out)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	path := matches[1]

	matches = reVerCode.FindStringSubmatch(out)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	piVersionCode, _ := strconv.Atoi(matches[1])

	matches = reVerName.FindStringSubmatch(out)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	piVersionName := matches[1]

	info := PackageInfo{Name: packageName, Path: path}
	info.Version.Code = piVersionCode
	info.Version.Name = piVersionName
	return info, nil
}

// GetProp returns the value of a system property, "" if it is not set.
func GetProp(ctx context.Context, c *adbexec.Client, serial, name string) (string, error) {
	out, err := c.Shell(ctx, serial, "getprop", name)
	return strings.TrimSpace(out), err
}
