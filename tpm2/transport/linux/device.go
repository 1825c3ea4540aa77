// Package linux implements the character-device binding of
// tpm2.Transport, submitting requests to a resident TPM via its
// /dev/tpm* node (spec §6 "TPM transport contract").
//
// This package supplements the core specification: it is grounded only
// on the shape the teacher lineage's device_test.go implies
// (ListTPMDevices, TPMDeviceRaw), not on a retrieved implementation, so
// it is written fresh rather than adapted line-by-line.
package linux

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// sysfsPath is the root sysfs directory this package scans for TPM
// character devices; overridable in tests via MockSysfsPath.
var sysfsPath = "/sys/class/tpm"

// MockSysfsPath overrides the sysfs root scanned by ListTPMDevices,
// returning a restore function.
func MockSysfsPath(path string) (restore func()) {
	orig := sysfsPath
	sysfsPath = path
	return func() { sysfsPath = orig }
}

var tpmDeviceName = regexp.MustCompile(`^tpm(\d+)$`)

// TPMDeviceRaw describes a TPM character device discovered under
// sysfsPath.
type TPMDeviceRaw struct {
	Path        string // e.g. /dev/tpm0
	SysfsPath   string
	Major       int
	Minor       int
}

// ListTPMDevices enumerates the TPM 2.0 character devices present under
// the configured sysfs root, in ascending device-name order.
func ListTPMDevices() ([]*TPMDeviceRaw, error) {
	entries, err := os.ReadDir(sysfsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("linux: reading %s: %w", sysfsPath, err)
	}

	var names []string
	for _, e := range entries {
		if tpmDeviceName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var devices []*TPMDeviceRaw
	for _, name := range names {
		devices = append(devices, &TPMDeviceRaw{
			Path:      filepath.Join("/dev", name),
			SysfsPath: filepath.Join(sysfsPath, name),
		})
	}
	return devices, nil
}

// ErrDeviceTransport wraps a failure opening or using a TPM character
// device.
type ErrDeviceTransport struct {
	Path string
	err  error
}

func (e *ErrDeviceTransport) Error() string {
	return fmt.Sprintf("linux: device %s: %v", e.Path, e.err)
}

func (e *ErrDeviceTransport) Unwrap() error { return e.err }

// deviceFile is the subset of *os.File this package depends on,
// satisfied by the real device node and by a fake stream in tests.
type deviceFile interface {
	io.Reader
	io.Writer
	io.Closer
}

// Transport implements tpm2.Transport against a resident TPM's
// character device, where a single write of the encoded command is
// followed by a single read of the complete response (the kernel TPM
// driver frames the boundary; no additional length prefix is needed,
// unlike the TCP simulator binding).
type Transport struct {
	dev *TPMDeviceRaw
	f   deviceFile
}

// Open opens dev.Path for reading and writing.
func Open(dev *TPMDeviceRaw) (*Transport, error) {
	f, err := os.OpenFile(dev.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, &ErrDeviceTransport{Path: dev.Path, err: err}
	}
	return &Transport{dev: dev, f: f}, nil
}

// newTransport wraps an arbitrary deviceFile stream, used by tests to
// exercise Submit/Close against a fake device without a real /dev node.
func newTransport(dev *TPMDeviceRaw, f deviceFile) *Transport {
	return &Transport{dev: dev, f: f}
}

// Submit implements tpm2.Transport.
func (t *Transport) Submit(ctx context.Context, request []byte) ([]byte, error) {
	if _, err := t.f.Write(request); err != nil {
		return nil, &ErrDeviceTransport{Path: t.dev.Path, err: err}
	}
	buf := make([]byte, 4096)
	n, err := t.f.Read(buf)
	if err != nil {
		return nil, &ErrDeviceTransport{Path: t.dev.Path, err: err}
	}
	return buf[:n], nil
}

// Close implements tpm2.Transport.
func (t *Transport) Close() error {
	if err := t.f.Close(); err != nil {
		return &ErrDeviceTransport{Path: t.dev.Path, err: err}
	}
	return nil
}
