package adbexec

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// ADBExecutableName is the base name of the adb binary.
	ADBExecutableName = "adb"
	// FastbootExecutableName is the base name of the fastboot binary.
	FastbootExecutableName = "fastboot"

	// dirName is the per-user directory holding installed tools.
	dirName = ".adbexec"
)

// Tools holds the paths of the adb and fastboot executables.
// Use Locate, LookPath or an Installer to get one.
type Tools struct {
	ADB      string
	Fastboot string
}

// DefaultDir returns <home>/.adbexec/bin.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "error resolving home directory")
	}
	return filepath.Join(home, dirName, "bin"), nil
}

// Locate returns the tools installed in dir. Both must exist.
func Locate(dir string) (Tools, error) {
	osys := DetectOS()
	adb := filepath.Join(dir, osys.ExecutableName(ADBExecutableName))
	fastboot := filepath.Join(dir, osys.ExecutableName(FastbootExecutableName))
	for _, path := range []string{adb, fastboot} {
		if err := checkRegular(path); err != nil {
			return Tools{}, err
		}
	}
	return Tools{ADB: adb, Fastboot: fastboot}, nil
}

// LookPath resolves both tools from the directories named by $PATH.
func LookPath() (Tools, error) {
	adb, err := exec.LookPath(ADBExecutableName)
	if err != nil {
		return Tools{}, errors.Wrapf(ErrToolNotFound, "%s: %v", ADBExecutableName, err)
	}
	fastboot, err := exec.LookPath(FastbootExecutableName)
	if err != nil {
		return Tools{}, errors.Wrapf(ErrToolNotFound, "%s: %v", FastbootExecutableName, err)
	}
	return Tools{ADB: adb, Fastboot: fastboot}, nil
}

func checkRegular(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.Wrap(ErrToolNotFound, path)
	} else if err != nil {
		return errors.Wrapf(err, "error reading %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrapf(ErrToolNotFound, "%s is not a regular file", path)
	}
	return nil
}

// CopyFunc copies size bytes from src to dst.
type CopyFunc func(dst io.Writer, src io.Reader, size int64) error

func plainCopy(dst io.Writer, src io.Reader, _ int64) error {
	_, err := io.Copy(dst, src)
	return err
}

// Installer places the platform tools for one OS into a directory.
//
// Source is expected to contain one directory per OS (linux, mac, windows),
// each holding adb and fastboot for that OS.
type Installer struct {
	Source string
	// Dir is where the tools are installed. Defaults to DefaultDir.
	Dir string
	OS  OS
	// Copy is used to copy each file. Defaults to io.Copy.
	Copy CopyFunc
}

// NewInstaller returns an Installer for the host OS into the default dir.
func NewInstaller(source string) (*Installer, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &Installer{
		Source: source,
		Dir:    dir,
		OS:     DetectOS(),
		Copy:   plainCopy,
	}, nil
}

// Install copies adb and fastboot into Dir and returns their paths. Files
// already present with the expected size are left alone.
func (in *Installer) Install(ctx context.Context) (Tools, error) {
	if in.Dir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return Tools{}, err
		}
		in.Dir = dir
	}
	copyFn := in.Copy
	if copyFn == nil {
		copyFn = plainCopy
	}
	if err := os.MkdirAll(in.Dir, 0755); err != nil {
		return Tools{}, errors.Wrapf(err, "error creating %s", in.Dir)
	}

	var tools Tools
	for _, base := range []string{ADBExecutableName, FastbootExecutableName} {
		if err := ctx.Err(); err != nil {
			return Tools{}, err
		}
		name := in.OS.ExecutableName(base)
		src := filepath.Join(in.Source, in.OS.String(), name)
		dst := filepath.Join(in.Dir, name)
		if err := installFile(dst, src, copyFn); err != nil {
			return Tools{}, errors.WithMessagef(err, "Install(%s)", base)
		}
		if base == ADBExecutableName {
			tools.ADB = dst
		} else {
			tools.Fastboot = dst
		}
	}
	return tools, nil
}

func installFile(dst, src string, copyFn CopyFunc) error {
	srcInfo, err := os.Stat(src)
	if os.IsNotExist(err) {
		return errors.Wrap(ErrToolNotFound, src)
	} else if err != nil {
		return err
	}
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.Mode().IsRegular() &&
		dstInfo.Size() == srcInfo.Size() {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Write next to the destination and rename, so a failed copy never leaves
	// a truncated tool behind.
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := copyFn(tmp, in, srcInfo.Size()); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error copying %s", src)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
