package linux

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// pipeFile adapts a net.Conn half to the deviceFile interface, standing
// in for a real character device: writes and reads are independent
// streams, unlike a regular file's shared offset.
type pipeFile struct {
	net.Conn
}

func TestTransportSubmitWritesThenReadsOverIndependentStreams(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		buf := make([]byte, 2)
		if _, err := server.Read(buf); err != nil {
			return
		}
		server.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	}()

	tr := newTransport(&TPMDeviceRaw{Path: "/dev/tpm0"}, pipeFile{client})
	got, err := tr.Submit(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, got)
}
