package tpm2_test

import (
	"testing"

	"github.com/Lumoin/Verifiable-sub005/tpm2"
	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	w := tpm2.NewWriter(0)
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	require.NoError(t, w.WriteTPM2B([]byte("hello tpm2b")))
	w.WriteBytes([]byte{0x01, 0x02, 0x03})

	r := tpm2.NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	tpm2b, err := r.ReadTPM2B()
	require.NoError(t, err)
	require.Equal(t, []byte("hello tpm2b"), tpm2b)

	tail, err := r.ReadBytes(3)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, tail)

	require.Equal(t, r.Consumed(), w.Written())
	require.Equal(t, 0, r.Remaining())
}

func TestEmptyTPM2B(t *testing.T) {
	w := tpm2.NewWriter(0)
	require.NoError(t, w.WriteTPM2B(nil))

	r := tpm2.NewReader(w.Bytes())
	b, err := r.ReadTPM2B()
	require.NoError(t, err)
	require.Empty(t, b)
}

func TestInsufficientBytes(t *testing.T) {
	r := tpm2.NewReader([]byte{0x01, 0x02})
	_, err := r.ReadU32()
	require.Error(t, err)

	var insufficient *tpm2.ErrInsufficientBytes
	require.ErrorAs(t, err, &insufficient)
}

func TestTPM2BLengthOverflow(t *testing.T) {
	// Declares a length of 10 but only supplies 2 bytes of payload.
	r := tpm2.NewReader([]byte{0x00, 0x0A, 0x01, 0x02})
	_, err := r.ReadTPM2B()
	require.Error(t, err)

	var overflow *tpm2.ErrLengthOverflow
	require.ErrorAs(t, err, &overflow)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r := tpm2.NewReader([]byte{0xAA, 0xBB, 0xCC})
	peeked, err := r.PeekBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, peeked)
	require.Equal(t, 0, r.Consumed())

	require.NoError(t, r.Skip(1))
	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xBB, 0xCC}, b)
}

func TestSkipBeyondBufferFails(t *testing.T) {
	r := tpm2.NewReader([]byte{0x01})
	require.Error(t, r.Skip(5))
}
