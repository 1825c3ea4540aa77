// Package simulator implements the TPM2-Simulator TCP framing over
// 127.0.0.1:2321, one of the platform bindings for tpm2.Transport
// (spec §6 "TPM transport contract").
package simulator

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// commandSendTag is the TPM_SEND_COMMAND platform tag the simulator
// protocol prefixes every request with.
const commandSendTag uint32 = 8

// DefaultAddress is the simulator's conventional TCP endpoint.
const DefaultAddress = "127.0.0.1:2321"

// ErrTransport wraps a network-level failure talking to the simulator.
type ErrTransport struct {
	Op  string
	err error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("simulator: %s: %v", e.Op, e.err)
}

func (e *ErrTransport) Unwrap() error { return e.err }

// Transport implements tpm2.Transport against a TPM2-Simulator TCP
// command channel, using the locality and framing spec §6 specifies:
// uint32 TPM_SEND_COMMAND tag, a locality byte, a uint32 body length,
// then the body; the response is the TPM body followed by a uint32
// status word, all big-endian.
type Transport struct {
	conn     net.Conn
	locality byte
}

// Dial opens a TCP connection to a TPM simulator's command port at
// addr, defaulting locality 0.
func Dial(ctx context.Context, addr string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ErrTransport{Op: "dial", err: err}
	}
	return &Transport{conn: conn}, nil
}

// WithLocality sets the locality byte subsequent Submit calls frame
// requests with.
func (t *Transport) WithLocality(locality byte) *Transport {
	t.locality = locality
	return t
}

// Submit implements tpm2.Transport.
func (t *Transport) Submit(ctx context.Context, request []byte) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
	} else {
		_ = t.conn.SetDeadline(time.Time{})
	}

	header := make([]byte, 4+1+4)
	binary.BigEndian.PutUint32(header[0:4], commandSendTag)
	header[4] = t.locality
	binary.BigEndian.PutUint32(header[5:9], uint32(len(request)))

	if _, err := t.conn.Write(header); err != nil {
		return nil, &ErrTransport{Op: "write header", err: err}
	}
	if _, err := t.conn.Write(request); err != nil {
		return nil, &ErrTransport{Op: "write body", err: err}
	}

	return t.readResponse()
}

// tpmResponseHeaderSize is tag(2) + size(4) + responseCode(4): the
// fixed prefix of every TPM response, whose size field covers the
// entire response including this prefix (spec §4.3 framing).
const tpmResponseHeaderSize = 10

func (t *Transport) readResponse() ([]byte, error) {
	header := make([]byte, tpmResponseHeaderSize)
	if _, err := readFull(t.conn, header); err != nil {
		return nil, &ErrTransport{Op: "read response header", err: err}
	}
	totalSize := binary.BigEndian.Uint32(header[2:6])
	if totalSize < tpmResponseHeaderSize {
		return nil, &ErrTransport{Op: "read response header", err: fmt.Errorf("declared response size %d smaller than header", totalSize)}
	}

	body := make([]byte, totalSize)
	copy(body, header)
	if _, err := readFull(t.conn, body[tpmResponseHeaderSize:]); err != nil {
		return nil, &ErrTransport{Op: "read response body", err: err}
	}

	statusBuf := make([]byte, 4)
	if _, err := readFull(t.conn, statusBuf); err != nil {
		return nil, &ErrTransport{Op: "read response status", err: err}
	}
	status := binary.BigEndian.Uint32(statusBuf)
	if status != 0 {
		return nil, &ErrTransport{Op: "simulator status", err: fmt.Errorf("non-zero simulator status word: 0x%08x", status)}
	}

	return body, nil
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

// Close implements tpm2.Transport.
func (t *Transport) Close() error {
	if err := t.conn.Close(); err != nil {
		return &ErrTransport{Op: "close", err: err}
	}
	return nil
}
