package tpm2

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Handle is a TPM resource handle. Its type is encoded in the upper
// byte (spec §3 "TPM handle").
type Handle uint32

// HandleType classifies a Handle by its upper-byte discriminator.
type HandleType uint8

const (
	HandleTypePCR              HandleType = 0x00
	HandleTypeNVIndex          HandleType = 0x01
	HandleTypeHMACSession      HandleType = 0x02
	HandleTypePolicySession    HandleType = 0x03
	HandleTypePermanent        HandleType = 0x40
	HandleTypeTransientObject  HandleType = 0x80
	HandleTypePersistentObject HandleType = 0x81
)

// Type returns the handle's type discriminator (its upper byte).
func (h Handle) Type() HandleType {
	return HandleType(h >> 24)
}

// IsSession reports whether h refers to an HMAC or policy session.
func (h Handle) IsSession() bool {
	t := h.Type()
	return t == HandleTypeHMACSession || t == HandleTypePolicySession
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08X", uint32(h))
}

// Reserved permanent handles (TPM 2.0 Part 2, table "TPM_HANDLE").
const (
	HandleOwner       Handle = 0x40000001
	HandleNull        Handle = 0x40000007
	HandleEndorsement Handle = 0x4000000B
	HandlePlatform    Handle = 0x4000000C
	HandleLockout     Handle = 0x4000000A

	// HandlePasswordSession is the reserved handle used in the
	// authorization area for a plaintext-password authorization in
	// place of a real session (spec §4.3 "Authorization structure").
	HandlePasswordSession Handle = 0x40000009
)

// CommandCode identifies a TPM 2.0 command (TPM_CC_*).
type CommandCode uint32

// Representative command codes (spec §4.4).
const (
	CommandNVUndefineSpaceSpecial CommandCode = 0x0000011F
	CommandStartup                CommandCode = 0x00000144
	CommandSelfTest               CommandCode = 0x00000143
	CommandStartAuthSession       CommandCode = 0x00000176
	CommandCreatePrimary          CommandCode = 0x00000131
	CommandFlushContext           CommandCode = 0x00000165
	CommandGetCapability          CommandCode = 0x0000017A
	CommandGetRandom              CommandCode = 0x0000017B
	CommandPCRRead                CommandCode = 0x0000017E
	CommandPolicyOR               CommandCode = 0x00000171
	CommandPolicySigned           CommandCode = 0x00000160
	CommandPolicyPassword         CommandCode = 0x0000018C
	CommandPolicyGetDigest        CommandCode = 0x00000189
)

var commandNames = map[CommandCode]string{
	CommandStartup:          "TPM_CC_Startup",
	CommandSelfTest:         "TPM_CC_SelfTest",
	CommandStartAuthSession: "TPM_CC_StartAuthSession",
	CommandCreatePrimary:    "TPM_CC_CreatePrimary",
	CommandFlushContext:     "TPM_CC_FlushContext",
	CommandGetCapability:    "TPM_CC_GetCapability",
	CommandGetRandom:        "TPM_CC_GetRandom",
	CommandPCRRead:          "TPM_CC_PCR_Read",
	CommandPolicyOR:         "TPM_CC_PolicyOR",
	CommandPolicySigned:     "TPM_CC_PolicySigned",
	CommandPolicyPassword:   "TPM_CC_PolicyPassword",
	CommandPolicyGetDigest:  "TPM_CC_PolicyGetDigest",
}

func (c CommandCode) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	if c == AnyCommandCode {
		return "<any command>"
	}
	return fmt.Sprintf("TPM_CC(0x%08X)", uint32(c))
}

// StructTag is the TPM_ST value distinguishing sessions vs no-sessions
// command/response framing (spec §3 "Command descriptor", §4.3 table).
type StructTag uint16

const (
	TagNoSessions StructTag = 0x8001
	TagSessions   StructTag = 0x8002
)

// HashAlgorithmID identifies a digest algorithm (TPM_ALG_ID subset
// relevant to sessions and names).
type HashAlgorithmID uint16

const (
	HashAlgorithmNull   HashAlgorithmID = 0x0010
	HashAlgorithmSHA1   HashAlgorithmID = 0x0004
	HashAlgorithmSHA256 HashAlgorithmID = 0x000B
	HashAlgorithmSHA384 HashAlgorithmID = 0x000C
	HashAlgorithmSHA512 HashAlgorithmID = 0x000D
)

// Size returns the digest size in bytes for the algorithm, or 0 if
// unknown.
func (h HashAlgorithmID) Size() int {
	switch h {
	case HashAlgorithmSHA1:
		return 20
	case HashAlgorithmSHA256:
		return 32
	case HashAlgorithmSHA384:
		return 48
	case HashAlgorithmSHA512:
		return 64
	default:
		return 0
	}
}

// NewHash returns a fresh hash.Hash for the algorithm, defaulting to
// SHA-256 for HashAlgorithmNull or an unrecognized ID.
func NewHash(alg HashAlgorithmID) hash.Hash {
	switch alg {
	case HashAlgorithmSHA1:
		return sha1.New()
	case HashAlgorithmSHA384:
		return sha512.New384()
	case HashAlgorithmSHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}
