package adbexec

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ForwardSpec protocols
const (
	FProtocolTCP        = "tcp"
	FProtocolJDWP       = "jdwp"
	FProtocolAbstract   = "localabstract"
	FProtocolReserved   = "localreserved"
	FProtocolFilesystem = "localfilesystem"
	FProtocolDev        = "dev"
)

// ForwardSpec is one end of a forward, "<protocol>:<port or name>".
type ForwardSpec string

// TCPForward returns the spec for a tcp port.
func TCPForward(port int) ForwardSpec {
	return ForwardSpec(FProtocolTCP + ":" + strconv.Itoa(port))
}

// Port returns -1 if the endpoint has no port.
func (f ForwardSpec) Port() int {
	if f.Protocol() != FProtocolTCP {
		return -1
	}
	p, err := strconv.Atoi(f.name())
	if err != nil {
		return -1
	}
	return p
}

func (f ForwardSpec) Protocol() string {
	fields := strings.SplitN(string(f), ":", 2)
	return fields[0]
}

func (f ForwardSpec) name() string {
	fields := strings.SplitN(string(f), ":", 2)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// ParseForwardSpec validates s.
func ParseForwardSpec(s string) (ForwardSpec, error) {
	fields := strings.SplitN(s, ":", 2)
	if len(fields) != 2 || fields[1] == "" {
		return "", errors.Wrapf(ErrParsing, "malformed forward spec %q", s)
	}
	switch fields[0] {
	case FProtocolTCP, FProtocolJDWP:
		if _, err := strconv.Atoi(fields[1]); err != nil {
			return "", errors.Wrapf(ErrParsing, "malformed pid or port: %s", fields[1])
		}
		return ForwardSpec(s), nil
	case FProtocolAbstract, FProtocolReserved, FProtocolFilesystem, FProtocolDev:
		return ForwardSpec(s), nil
	default:
		return "", errors.Wrapf(ErrParsing, "unrecognized protocol: %s", fields[0])
	}
}

// ForwardPair is one line of adb forward --list.
type ForwardPair struct {
	Serial string
	Local  ForwardSpec
	Remote ForwardSpec
}

// ForwardList returns the active forwards. If serial is empty, the forwards
// of all devices are returned.
func (c *Client) ForwardList(ctx context.Context, serial string) ([]ForwardPair, error) {
	out, err := c.ADB(ctx, CommandOptions{}, "forward", "--list")
	if err != nil {
		return nil, err
	}
	fws, err := parseForwardList(out)
	if err != nil {
		return nil, errors.WithMessage(err, "ForwardList")
	}
	if serial == "" {
		return fws, nil
	}
	filtered := fws[:0]
	for _, fw := range fws {
		if fw.Serial == serial {
			filtered = append(filtered, fw)
		}
	}
	return filtered, nil
}

func parseForwardList(out string) ([]ForwardPair, error) {
	fws := make([]ForwardPair, 0, 2)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, errors.Wrapf(ErrParsing, "malformed forward line %q", scanner.Text())
		}
		local, err := ParseForwardSpec(fields[1])
		if err != nil {
			return nil, err
		}
		remote, err := ParseForwardSpec(fields[2])
		if err != nil {
			return nil, err
		}
		fws = append(fws, ForwardPair{Serial: fields[0], Local: local, Remote: remote})
	}
	return fws, scanner.Err()
}

// Forward connections to local on the host to remote on the device.
func (c *Client) Forward(ctx context.Context, serial string, local, remote ForwardSpec) error {
	_, err := c.ADB(ctx, CommandOptions{Serial: serial}, "forward", string(local), string(remote))
	return errors.WithMessage(err, "Forward")
}

// ForwardRemove removes the forward listening on local.
func (c *Client) ForwardRemove(ctx context.Context, serial string, local ForwardSpec) error {
	_, err := c.ADB(ctx, CommandOptions{Serial: serial}, "forward", "--remove", string(local))
	return errors.WithMessage(err, "ForwardRemove")
}

// ForwardRemoveAll cancels all existing forwards.
func (c *Client) ForwardRemoveAll(ctx context.Context, serial string) error {
	_, err := c.ADB(ctx, CommandOptions{Serial: serial}, "forward", "--remove-all")
	return errors.WithMessage(err, "ForwardRemoveAll")
}

// ForwardToFreePort forwards a free local tcp port to remote and returns it.
// If remote is already forwarded for the device, that port is returned.
func (c *Client) ForwardToFreePort(ctx context.Context, serial string, remote ForwardSpec) (int, error) {
	fws, err := c.ForwardList(ctx, serial)
	if err != nil {
		return 0, err
	}
	for _, fw := range fws {
		if fw.Remote == remote {
			if fw.Local.Port() == -1 {
				return 0, errors.New("no local port")
			}
			return fw.Local.Port(), nil
		}
	}
	port, err := getFreePort()
	if err != nil {
		return 0, err
	}
	return port, c.Forward(ctx, serial, TCPForward(port), remote)
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
