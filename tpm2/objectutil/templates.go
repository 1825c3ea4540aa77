// Package objectutil builds tpm2.Public templates via functional
// options, so callers of tpm2.Executor.CreatePrimary don't have to
// hand-assemble a Public struct literal field by field.
package objectutil

import (
	"github.com/Lumoin/Verifiable-sub005/tpm2"
)

// PublicTemplateOption customizes a template under construction.
type PublicTemplateOption func(*tpm2.Public)

// WithNameAlg returns an option selecting the template's name algorithm.
func WithNameAlg(alg tpm2.HashAlgorithmID) PublicTemplateOption {
	return func(pub *tpm2.Public) {
		pub.NameAlg = alg
	}
}

// AuthMode selects how a role's authorization is satisfied.
type AuthMode int

const (
	// AllowAuthValue permits a passphrase or HMAC session in addition to
	// a policy session.
	AllowAuthValue AuthMode = iota + 1

	// RequirePolicy permits only a policy session.
	RequirePolicy
)

// WithUserAuthMode returns an option controlling user-role authorization.
func WithUserAuthMode(mode AuthMode) PublicTemplateOption {
	return func(pub *tpm2.Public) {
		switch mode {
		case AllowAuthValue:
			pub.Attrs |= tpm2.AttrUserWithAuth
		case RequirePolicy:
			pub.Attrs &^= tpm2.AttrUserWithAuth
		default:
			panic("objectutil: invalid AuthMode")
		}
	}
}

// WithAdminAuthMode returns an option controlling admin-role authorization.
func WithAdminAuthMode(mode AuthMode) PublicTemplateOption {
	return func(pub *tpm2.Public) {
		switch mode {
		case AllowAuthValue:
			pub.Attrs &^= tpm2.AttrAdminWithPolicy
		case RequirePolicy:
			pub.Attrs |= tpm2.AttrAdminWithPolicy
		default:
			panic("objectutil: invalid AuthMode")
		}
	}
}

// WithDictionaryAttackProtection enables DA protection for the object.
func WithDictionaryAttackProtection() PublicTemplateOption {
	return func(pub *tpm2.Public) {
		pub.Attrs &^= tpm2.AttrNoDA
	}
}

// WithoutDictionaryAttackProtection disables DA protection for the object.
func WithoutDictionaryAttackProtection() PublicTemplateOption {
	return func(pub *tpm2.Public) {
		pub.Attrs |= tpm2.AttrNoDA
	}
}

// WithExternalSensitiveData marks the object's sensitive data as supplied
// by the caller rather than generated by the TPM.
func WithExternalSensitiveData() PublicTemplateOption {
	return func(pub *tpm2.Public) {
		pub.Attrs &^= tpm2.AttrSensitiveDataOrigin
	}
}

// WithInternalSensitiveData marks the object's sensitive data as TPM-generated.
func WithInternalSensitiveData() PublicTemplateOption {
	return func(pub *tpm2.Public) {
		pub.Attrs |= tpm2.AttrSensitiveDataOrigin
	}
}

// ProtectionGroupMode describes whether a primary key may be duplicated
// out of its hierarchy.
type ProtectionGroupMode int

const (
	// NonDuplicable sets AttrFixedTPM and AttrFixedParent.
	NonDuplicable ProtectionGroupMode = iota + 1

	// Duplicable clears AttrFixedTPM, permitting duplication.
	Duplicable
)

// WithProtectionGroup returns an option applying the given duplication mode.
func WithProtectionGroup(mode ProtectionGroupMode) PublicTemplateOption {
	return func(pub *tpm2.Public) {
		switch mode {
		case NonDuplicable:
			pub.Attrs |= tpm2.AttrFixedTPM | tpm2.AttrFixedParent
		case Duplicable:
			pub.Attrs &^= tpm2.AttrFixedTPM
			pub.Attrs |= tpm2.AttrFixedParent
		default:
			panic("objectutil: invalid ProtectionGroupMode")
		}
	}
}

func apply(pub *tpm2.Public, opts []PublicTemplateOption) *tpm2.Public {
	for _, opt := range opts {
		opt(pub)
	}
	return pub
}

// NewRSAStorageKeyTemplate returns a template for an RSA restricted
// decryption key suitable as a primary storage parent, with the given
// modulus size in bits.
func NewRSAStorageKeyTemplate(bits uint16, opts ...PublicTemplateOption) *tpm2.Public {
	pub := &tpm2.Public{
		Type:    tpm2.ObjectTypeRSA,
		NameAlg: tpm2.HashAlgorithmSHA256,
		Attrs: tpm2.AttrFixedTPM | tpm2.AttrFixedParent |
			tpm2.AttrSensitiveDataOrigin | tpm2.AttrUserWithAuth |
			tpm2.AttrNoDA | tpm2.AttrRestricted | tpm2.AttrDecryptObj,
		Params: tpm2.PublicParams{RSABits: bits, RSAExponent: 0},
	}
	return apply(pub, opts)
}

// NewECCStorageKeyTemplate returns a template for an ECC restricted
// decryption key suitable as a primary storage parent, on the given curve.
func NewECCStorageKeyTemplate(curve uint16, opts ...PublicTemplateOption) *tpm2.Public {
	pub := &tpm2.Public{
		Type:    tpm2.ObjectTypeECC,
		NameAlg: tpm2.HashAlgorithmSHA256,
		Attrs: tpm2.AttrFixedTPM | tpm2.AttrFixedParent |
			tpm2.AttrSensitiveDataOrigin | tpm2.AttrUserWithAuth |
			tpm2.AttrNoDA | tpm2.AttrRestricted | tpm2.AttrDecryptObj,
		Params: tpm2.PublicParams{ECCCurve: curve},
	}
	return apply(pub, opts)
}

// NewRSASigningKeyTemplate returns a template for an unrestricted RSA
// signing key.
func NewRSASigningKeyTemplate(bits uint16, opts ...PublicTemplateOption) *tpm2.Public {
	pub := &tpm2.Public{
		Type:    tpm2.ObjectTypeRSA,
		NameAlg: tpm2.HashAlgorithmSHA256,
		Attrs: tpm2.AttrFixedTPM | tpm2.AttrFixedParent |
			tpm2.AttrSensitiveDataOrigin | tpm2.AttrUserWithAuth |
			tpm2.AttrNoDA | tpm2.AttrSignObj,
		Params: tpm2.PublicParams{RSABits: bits, RSAExponent: 0},
	}
	return apply(pub, opts)
}
