package policy

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"

	"github.com/Lumoin/Verifiable-sub005/tpm2"
)

// PolicySignedAuthorization is a signed authorization for a
// TPM2_PolicySigned assertion (spec §3 "TPM session", policy kind),
// adapted from the teacher lineage's PolicySignedAuthorization/
// SignPolicySignedAuthorization.
type PolicySignedAuthorization struct {
	NonceTPM   []byte
	CpHash     []byte
	Expiration int32
	PolicyRef  []byte

	SignerPublicKey crypto.PublicKey
	Signature       []byte
}

// ErrNotSigned is returned by Verify when the authorization has no
// signature yet.
var ErrNotSigned = errors.New("policy: authorization is not signed")

// ErrUnsupportedSignerKey is returned when Sign or Verify is given a
// key type this package doesn't know how to handle.
var ErrUnsupportedSignerKey = errors.New("policy: unsupported signer key type")

func (a *PolicySignedAuthorization) toBeSignedDigest(alg tpm2.HashAlgorithmID) ([]byte, error) {
	w := tpm2.NewWriter(64 + len(a.NonceTPM) + len(a.CpHash) + len(a.PolicyRef))
	if err := w.WriteTPM2B(a.NonceTPM); err != nil {
		return nil, err
	}
	w.WriteU32(uint32(a.Expiration))
	if err := w.WriteTPM2B(a.CpHash); err != nil {
		return nil, err
	}
	if err := w.WriteTPM2B(a.PolicyRef); err != nil {
		return nil, err
	}

	h := tpm2.NewHash(alg)
	h.Write(w.Bytes())
	return h.Sum(nil), nil
}

// Sign computes the to-be-signed digest and signs it with signer,
// recording signer's public key so Verify can be called without it
// being supplied again.
func (a *PolicySignedAuthorization) Sign(signer crypto.Signer, alg tpm2.HashAlgorithmID) error {
	digest, err := a.toBeSignedDigest(alg)
	if err != nil {
		return err
	}

	var sig []byte
	switch key := signer.Public().(type) {
	case ed25519.PublicKey:
		sig, err = signer.Sign(rand.Reader, digest, crypto.Hash(0))
	case *ecdsa.PublicKey:
		sig, err = signer.Sign(rand.Reader, digest, hashForAlg(alg))
	case *rsa.PublicKey:
		sig, err = signer.Sign(rand.Reader, digest, hashForAlg(alg))
	default:
		_ = key
		return ErrUnsupportedSignerKey
	}
	if err != nil {
		return err
	}

	a.SignerPublicKey = signer.Public()
	a.Signature = sig
	return nil
}

// Verify checks the authorization's signature against its recorded
// public key and digest algorithm.
func (a *PolicySignedAuthorization) Verify(alg tpm2.HashAlgorithmID) (bool, error) {
	if a.Signature == nil {
		return false, ErrNotSigned
	}
	digest, err := a.toBeSignedDigest(alg)
	if err != nil {
		return false, err
	}

	switch key := a.SignerPublicKey.(type) {
	case ed25519.PublicKey:
		return ed25519.Verify(key, digest, a.Signature), nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(key, digest, a.Signature), nil
	case *rsa.PublicKey:
		err := rsa.VerifyPKCS1v15(key, hashForAlg(alg).HashFunc(), digest, a.Signature)
		return err == nil, nil
	default:
		return false, ErrUnsupportedSignerKey
	}
}

type cryptoHashOpts crypto.Hash

func (c cryptoHashOpts) HashFunc() crypto.Hash { return crypto.Hash(c) }

func hashForAlg(alg tpm2.HashAlgorithmID) cryptoHashOpts {
	switch alg {
	case tpm2.HashAlgorithmSHA1:
		return cryptoHashOpts(crypto.SHA1)
	case tpm2.HashAlgorithmSHA384:
		return cryptoHashOpts(crypto.SHA384)
	case tpm2.HashAlgorithmSHA512:
		return cryptoHashOpts(crypto.SHA512)
	default:
		return cryptoHashOpts(crypto.SHA256)
	}
}
