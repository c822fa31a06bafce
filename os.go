package adbexec

import "runtime"

// OS is a host operating system the platform tools are built for.
type OS uint8

const (
	Linux OS = iota
	MacOS
	Windows
)

// DetectOS returns the OS this binary runs on. Everything that is neither
// linux nor darwin is treated as Windows.
func DetectOS() OS {
	return detectOS(runtime.GOOS)
}

func detectOS(goos string) OS {
	switch goos {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	default:
		return Windows
	}
}

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case MacOS:
		return "mac"
	case Windows:
		return "windows"
	default:
		return "<invalid OS>"
	}
}

// ExecutableName returns the file name of the executable base on o.
func (o OS) ExecutableName(base string) string {
	if o == Windows {
		return base + ".exe"
	}
	return base
}
