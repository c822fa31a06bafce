/*
Package adbexec controls Android devices by running the adb and fastboot
command line tools.

Every call builds a fresh argument list, starts the tool, reads its standard
output line by line until EOF and returns it. Nothing is kept between calls
except the paths of the two tools, so a Client can be shared freely.

	tools, err := adbexec.Locate(dir)
	if err != nil {
		return err
	}
	client := adbexec.New(tools)
	devices, err := client.Devices(ctx)

Exit codes are ignored unless the Client is created WithExitCheck; callers
otherwise judge success from the output, as with the tools themselves.
*/
package adbexec
