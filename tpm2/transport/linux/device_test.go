package linux_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Lumoin/Verifiable-sub005/tpm2/transport/linux"
	"github.com/stretchr/testify/require"
)

func TestListTPMDevicesFindsNumberedDevices(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tpm0"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tpmrm0"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tpm10"), 0o755))

	restore := linux.MockSysfsPath(dir)
	defer restore()

	devices, err := linux.ListTPMDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	require.Equal(t, "/dev/tpm0", devices[0].Path)
	require.Equal(t, "/dev/tpm10", devices[1].Path)
}

func TestListTPMDevicesNoSysfsPathReturnsEmpty(t *testing.T) {
	restore := linux.MockSysfsPath(filepath.Join(t.TempDir(), "does-not-exist"))
	defer restore()

	devices, err := linux.ListTPMDevices()
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestOpenMissingDeviceReturnsError(t *testing.T) {
	dev := &linux.TPMDeviceRaw{Path: filepath.Join(t.TempDir(), "no-such-device")}
	_, err := linux.Open(dev)
	require.Error(t, err)
	var devErr *linux.ErrDeviceTransport
	require.ErrorAs(t, err, &devErr)
}
