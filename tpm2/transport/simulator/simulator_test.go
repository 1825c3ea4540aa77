package simulator_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/Lumoin/Verifiable-sub005/tpm2/transport/simulator"
	"github.com/stretchr/testify/require"
)

// fakeSimulatorServer accepts one connection, asserts the request
// framing (tag, locality, body length, body), and writes back a
// canned TPM response body plus a zero status word.
func fakeSimulatorServer(t *testing.T, ln net.Listener, wantBody []byte, respBody []byte, status uint32) {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	header := make([]byte, 9)
	_, err = readFull(conn, header)
	require.NoError(t, err)
	require.EqualValues(t, 8, binary.BigEndian.Uint32(header[0:4]))
	require.Equal(t, byte(0), header[4])
	bodyLen := binary.BigEndian.Uint32(header[5:9])
	require.EqualValues(t, len(wantBody), bodyLen)

	gotBody := make([]byte, bodyLen)
	_, err = readFull(conn, gotBody)
	require.NoError(t, err)
	require.Equal(t, wantBody, gotBody)

	_, err = conn.Write(respBody)
	require.NoError(t, err)
	statusBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(statusBuf, status)
	_, err = conn.Write(statusBuf)
	require.NoError(t, err)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func buildTPMResponse(tag uint16, responseCode uint32, payload []byte) []byte {
	size := uint32(10 + len(payload))
	out := make([]byte, 0, size)
	tagBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(tagBuf, tag)
	sizeBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(sizeBuf, size)
	rcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(rcBuf, responseCode)
	out = append(out, tagBuf...)
	out = append(out, sizeBuf...)
	out = append(out, rcBuf...)
	out = append(out, payload...)
	return out
}

func TestTransportSubmitRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	request := []byte{0x00, 0x01, 0x02, 0x03}
	response := buildTPMResponse(0x8001, 0, []byte{0xAA, 0xBB})

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakeSimulatorServer(t, ln, request, response, 0)
	}()

	tr, err := simulator.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	got, err := tr.Submit(context.Background(), request)
	require.NoError(t, err)
	require.Equal(t, response, got)

	<-done
}

func TestTransportSubmitNonZeroStatusIsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	request := []byte{0x10}
	response := buildTPMResponse(0x8001, 0, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakeSimulatorServer(t, ln, request, response, 1)
	}()

	tr, err := simulator.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Submit(context.Background(), request)
	require.Error(t, err)

	<-done
}

func TestTransportDialTimeoutContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := simulator.Dial(ctx, "127.0.0.1:1")
	require.Error(t, err)
}
