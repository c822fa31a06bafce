// An app demonstrating most of the library's features.
package adbexec_test

import (
	"context"
	"fmt"
	"time"

	"github.com/d1ced/adbexec"
)

func Example() {
	ctx := context.Background()

	tools, err := adbexec.LookPath()
	if err != nil {
		panic(err)
	}
	client := adbexec.New(tools)

	version, _ := client.Version(ctx)
	fmt.Println("adb version:", version)

	deviceInfo, _ := client.DeviceList(ctx, true)

	fmt.Println("Devices:")
	for _, device := range deviceInfo {
		fmt.Printf("\t%s %s %s\n", device.Serial, device.State, device.Model)
	}

	fmt.Println("Watching for device state changes.")
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	watcher := client.NewDeviceWatcher(ctx, time.Second)

	for event := range watcher.C() {
		fmt.Printf("\t[%s]%+v\n", time.Now(), event)
	}
	if err = watcher.Err(); err != nil {
		fmt.Println(err)
	}

	client.KillServer(ctx)
}
