package adbexec

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForwardSpec(t *testing.T) {
	var tests = []struct {
		in       string
		wantErr  bool
		protocol string
		port     int
	}{
		{in: "tcp:6100", protocol: "tcp", port: 6100},
		{in: "jdwp:1234", protocol: "jdwp", port: -1},
		{in: "localabstract:chrome_devtools_remote", protocol: "localabstract", port: -1},
		{in: "tcp:http", wantErr: true},
		{in: "udp:53", wantErr: true},
		{in: "tcp", wantErr: true},
		{in: "tcp:", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			spec, err := ParseForwardSpec(test.in)
			if test.wantErr {
				assert.Equal(t, ErrParsing, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.protocol, spec.Protocol())
			assert.Equal(t, test.port, spec.Port())
		})
	}
}

const forwardListOutput = `ABC123 tcp:6100 tcp:7100
ABC123 tcp:6101 localabstract:chrome_devtools_remote
DEF456 tcp:6200 tcp:7100
`

func TestForwardList(t *testing.T) {
	runner := newFakeRunner(map[string]string{"forward --list": forwardListOutput})
	c := New(testTools, WithRunner(runner))

	all, err := c.ForwardList(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fws, err := c.ForwardList(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, []ForwardPair{
		{Serial: "ABC123", Local: "tcp:6100", Remote: "tcp:7100"},
		{Serial: "ABC123", Local: "tcp:6101", Remote: "localabstract:chrome_devtools_remote"},
	}, fws)
}

func TestForwardListMalformed(t *testing.T) {
	runner := newFakeRunner(map[string]string{"forward --list": "ABC123 tcp:6100\n"})
	c := New(testTools, WithRunner(runner))

	_, err := c.ForwardList(context.Background(), "")
	assert.Equal(t, ErrParsing, errors.Cause(err))
}

func TestForwardArguments(t *testing.T) {
	runner := newFakeRunner(nil)
	c := New(testTools, WithRunner(runner))
	ctx := context.Background()

	require.NoError(t, c.Forward(ctx, "S1", TCPForward(6100), "tcp:7100"))
	require.NoError(t, c.ForwardRemove(ctx, "S1", TCPForward(6100)))
	require.NoError(t, c.ForwardRemoveAll(ctx, ""))

	calls := runner.recorded()
	assert.Equal(t, []string{"-s", "S1", "forward", "tcp:6100", "tcp:7100"}, calls[0].args)
	assert.Equal(t, []string{"-s", "S1", "forward", "--remove", "tcp:6100"}, calls[1].args)
	assert.Equal(t, []string{"forward", "--remove-all"}, calls[2].args)
}

func TestForwardToFreePort(t *testing.T) {
	runner := newFakeRunner(map[string]string{"forward --list": forwardListOutput})
	c := New(testTools, WithRunner(runner))

	port, err := c.ForwardToFreePort(context.Background(), "DEF456", "tcp:7100")
	require.NoError(t, err)
	assert.Equal(t, 6200, port)
	assert.Len(t, runner.recorded(), 1)

	port, err = c.ForwardToFreePort(context.Background(), "DEF456", "tcp:9000")
	require.NoError(t, err)
	assert.True(t, port > 0)
	calls := runner.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"-s", "DEF456", "forward", string(TCPForward(port)), "tcp:9000"}, calls[2].args)
}
