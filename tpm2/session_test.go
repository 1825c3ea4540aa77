package tpm2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaultsToContinueSession(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0x01, 0x02})
	require.Equal(t, AttrContinueSession, s.Attributes)
	require.Equal(t, []byte{0x01, 0x02}, s.NonceTPM())
	require.False(t, s.Destroyed())
}

func TestSessionBindKeyEmptyMaterialLeavesUnbound(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, nil)
	require.NoError(t, s.BindSessionKey(nil, nil))
	require.Nil(t, s.sessionKey)
}

func TestSessionBindKeyDerivesFixedLengthKey(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, nil)
	require.NoError(t, s.BindSessionKey([]byte("owner-auth"), []byte("salt-seed")))
	require.Len(t, s.sessionKey, HashAlgorithmSHA256.Size())
}

func TestSessionEndUseMarksDestroyedWhenContinueCleared(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0xAA})

	_, _, err := s.beginUse(nil, AttrContinueSession)
	require.NoError(t, err)

	s.endUse([]byte{0xBB}, 0, false)
	require.True(t, s.Destroyed())
}

func TestSessionEndUseSurvivesWhenContinueSet(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0xAA})

	_, _, err := s.beginUse(nil, AttrContinueSession)
	require.NoError(t, err)

	s.endUse([]byte{0xBB}, AttrContinueSession, false)
	require.False(t, s.Destroyed())
	require.Equal(t, []byte{0xBB}, s.NonceTPM())
}

func TestSessionEndUseMarksDestroyedOnFlush(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0xAA})
	s.endUse([]byte{0xCC}, AttrContinueSession, true)
	require.True(t, s.Destroyed())
}

func TestSessionUseAfterDestroyedFails(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0xAA})
	s.endUse([]byte{0xCC}, 0, false)
	require.True(t, s.Destroyed())

	_, _, err := s.beginUse(nil, AttrContinueSession)
	require.Error(t, err)
	var destroyed *ErrSessionDestroyed
	require.ErrorAs(t, err, &destroyed)
}

func TestSessionBeginUseGeneratesFreshNonceEachTime(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0x01})

	nonce1, _, err := s.beginUse(nil, AttrContinueSession)
	require.NoError(t, err)
	nonce2, _, err := s.beginUse(nil, AttrContinueSession)
	require.NoError(t, err)

	require.Len(t, nonce1, HashAlgorithmSHA256.Size())
	require.NotEqual(t, nonce1, nonce2)
}

func TestSessionBoundKeyProducesHMACNotPlaintextAuth(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, []byte{0x01})
	require.NoError(t, s.BindSessionKey([]byte("auth"), []byte("salt")))
	s.SetAuthValue([]byte("auth"))

	_, hmacField, err := s.beginUse([]byte("cphash"), AttrContinueSession)
	require.NoError(t, err)
	require.NotEqual(t, []byte("auth"), hmacField)
	require.Len(t, hmacField, HashAlgorithmSHA256.Size())
}

func TestSessionUnboundBeginUseReturnsPlaintextAuthValue(t *testing.T) {
	s := NewSession(0x02000001, SessionTypeHMAC, HashAlgorithmSHA256, nil)
	s.SetAuthValue([]byte("password123"))

	_, authField, err := s.beginUse(nil, AttrContinueSession)
	require.NoError(t, err)
	require.Equal(t, []byte("password123"), authField)
}

func TestSessionBoundKeyUsesSessionHashAlgForHMAC(t *testing.T) {
	for _, alg := range []HashAlgorithmID{HashAlgorithmSHA384, HashAlgorithmSHA512} {
		s := NewSession(0x02000001, SessionTypeHMAC, alg, []byte{0x01})
		require.NoError(t, s.BindSessionKey([]byte("auth"), []byte("salt")))

		nonceCaller, hmacField, err := s.beginUse([]byte("cphash"), AttrContinueSession)
		require.NoError(t, err)
		require.Len(t, nonceCaller, alg.Size())
		require.Len(t, hmacField, alg.Size())
	}
}
