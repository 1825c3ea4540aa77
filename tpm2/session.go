package tpm2

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// SessionAttributes is a bitmask of session usage flags, mirrored from
// TPM2_StartAuthSession's TPMA_SESSION (spec §3 "TPM session";
// canonical/go-tpm2's tpm.go SessionAttributes const block names the
// same flags).
type SessionAttributes uint8

const (
	AttrContinueSession SessionAttributes = 1 << iota
	AttrAuditExclusive
	AttrAuditReset
	_
	_
	AttrDecrypt
	AttrEncrypt
	AttrAudit
)

// SessionType distinguishes the three authorization kinds named in spec
// §3: a plaintext password is not really a TPM session object at all
// (it's represented by HandlePasswordSession in the authorization area),
// HMAC sessions authenticate via a derived session key, and policy
// sessions accumulate a policy digest through a sequence of assertions.
type SessionType uint8

const (
	SessionTypeHMAC SessionType = iota
	SessionTypePolicy
)

// Session owns the host-side state of a TPM authorization session:
// nonces, attributes, and any bind/salt-derived key material (spec §3
// "TPM session").
type Session struct {
	mu sync.Mutex

	Handle      Handle
	Type        SessionType
	HashAlg     HashAlgorithmID
	Attributes  SessionAttributes
	nonceCaller []byte
	nonceTPM    []byte

	// sessionKey is the HMAC key derived from bind-entity auth value and
	// salt-seed material, per TPM 2.0 Part 1's session key derivation.
	// Unbound, unsalted sessions have a nil sessionKey (spec §4.4
	// StartAuthSession: "unbound/unsalted HMAC session is the minimal
	// variant").
	sessionKey []byte

	// authValue authorizes the session itself when used as a password
	// fallback rather than an HMAC computation.
	authValue []byte

	destroyed bool
}

// NewSession constructs a host-side session object for a handle already
// started on the TPM via StartAuthSession. nonceTPM is the value the TPM
// returned from that call.
func NewSession(handle Handle, typ SessionType, alg HashAlgorithmID, nonceTPM []byte) *Session {
	return &Session{
		Handle:     handle,
		Type:       typ,
		HashAlg:    alg,
		nonceTPM:   append([]byte(nil), nonceTPM...),
		Attributes: AttrContinueSession,
	}
}

// BindSessionKey derives the session's HMAC key from the bind entity's
// auth value and any salt-seed material (spec §3: "optional session key
// (HMAC key derived from bind + salt)"). This mirrors
// paramcrypt.go's computeSessionValue (authValue concatenated with salt)
// but runs the concatenation through HKDF (extract, then expand) rather than using
// the raw concatenation directly as the HMAC key, which is the standard
// ecosystem substitute for the TPM's own KDFa construction when a
// caller wants a fixed-length, algorithm-appropriate key.
func (s *Session) BindSessionKey(bindAuthValue, saltSeed []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ikm := append(append([]byte{}, bindAuthValue...), saltSeed...)
	if len(ikm) == 0 {
		s.sessionKey = nil
		return nil
	}

	size := s.HashAlg.Size()
	if size == 0 {
		return fmt.Errorf("tpm2: cannot derive session key for unknown hash algorithm %d", s.HashAlg)
	}

	kdf := hkdf.New(func() hash.Hash { return NewHash(s.HashAlg) }, ikm, nil, []byte("ATH"))
	key := make([]byte, size)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return fmt.Errorf("tpm2: session key derivation failed: %w", err)
	}
	s.sessionKey = key
	return nil
}

// SetAuthValue sets the plaintext authorization value used when this
// session authorizes an object it isn't bound to.
func (s *Session) SetAuthValue(v []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authValue = append([]byte(nil), v...)
}

// NonceTPM returns the most recently recorded nonce from the TPM.
func (s *Session) NonceTPM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.nonceTPM...)
}

// Destroyed reports whether the TPM has (or will have) discarded this
// session: either the continue-session attribute was cleared on its last
// use, or FlushContext was called against its handle.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// freshNonceCaller generates a new cryptographically random nonce-caller
// of the session's digest length, per spec §4.3 "Session bookkeeping
// after each command": "generate a fresh nonce-caller ... of the
// session's hash-digest length".
func (s *Session) freshNonceCaller() ([]byte, error) {
	size := s.HashAlg.Size()
	if size == 0 {
		size = sha256.Size
	}
	nonce := make([]byte, size)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("tpm2: failed to generate nonce-caller: %w", err)
	}
	return nonce, nil
}

// beginUse is called by the executor before submitting a command that
// carries this session. It returns the authorization HMAC field to put
// in the authorization structure.
func (s *Session) beginUse(cpHash []byte, attrs SessionAttributes) (nonceCaller, authField []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil, nil, &ErrSessionDestroyed{Handle: s.Handle}
	}

	if s.Handle == HandlePasswordSession {
		// Password authorization: empty nonce-caller, plaintext auth value.
		return nil, append([]byte(nil), s.authValue...), nil
	}

	nonceCaller, err = s.freshNonceCaller()
	if err != nil {
		return nil, nil, err
	}
	s.nonceCaller = nonceCaller

	if s.sessionKey == nil {
		// Plain password-equivalent HMAC session with no key material:
		// the "hmac" field degenerates to the plaintext auth value, same
		// as the reserved password-session convention (spec §4.3
		// "Authorization structure").
		return nonceCaller, append([]byte(nil), s.authValue...), nil
	}

	mac := hmac.New(func() hash.Hash { return NewHash(s.HashAlg) }, s.sessionKey)
	mac.Write(cpHash)
	mac.Write(nonceCaller)
	mac.Write(s.nonceTPM)
	mac.Write([]byte{byte(attrs)})
	return nonceCaller, mac.Sum(nil), nil
}

// endUse records the nonce-TPM and attributes returned in the matching
// response authorization area, and marks the session destroyed if the
// TPM cleared continue-session or if this call was FlushContext on the
// session's own handle (spec §4.3 "Session bookkeeping after each
// command").
func (s *Session) endUse(nonceTPM []byte, respAttrs SessionAttributes, flushed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonceTPM = append([]byte(nil), nonceTPM...)
	s.Attributes = respAttrs

	if flushed || respAttrs&AttrContinueSession == 0 {
		s.destroyed = true
	}
}
