// Package jwk implements RFC 7638 JWK thumbprint canonicalization and an
// interned-token registry for JOSE/JWK identifiers.
package jwk

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/Lumoin/Verifiable-sub005/secret"
)

// ErrParameterMissing is returned when a required JWK parameter for the
// key's kty is absent.
type ErrParameterMissing struct {
	Parameter string
	Kty       string
}

func (e *ErrParameterMissing) Error() string {
	return fmt.Sprintf("jwk: required parameter %q missing for kty %q", e.Parameter, e.Kty)
}

// ErrParameterEmpty is returned when a required JWK parameter is present
// but has an empty value.
type ErrParameterEmpty struct {
	Parameter string
	Kty       string
}

func (e *ErrParameterEmpty) Error() string {
	return fmt.Sprintf("jwk: required parameter %q is empty for kty %q", e.Parameter, e.Kty)
}

// requiredParams lists, in RFC 7638 §3 order, the parameters that make up
// each key type's thumbprint input.
var requiredParams = map[string][]string{
	"EC":  {"crv", "kty", "x", "y"},
	"OKP": {"crv", "kty", "x"},
	"RSA": {"e", "kty", "n"},
	"oct": {"k", "kty"},
}

// Params is a JWK's parameter-name -> base64url-encoded-value mapping.
// Values are taken as-is; callers are responsible for base64url encoding
// before calling ComputeThumbprint.
type Params map[string]string

// RequiredParamsFor returns the parameter order a thumbprint over kty
// requires, or an "unsupported kty" error if kty is not one of
// EC/OKP/RSA/oct.
func RequiredParamsFor(kty string) ([]string, error) {
	order, ok := requiredParams[kty]
	if !ok {
		return nil, fmt.Errorf("jwk: unsupported kty %q for thumbprint computation", kty)
	}
	return order, nil
}

// canonicalBytes builds the exact RFC 7638 §3 JSON object bytes: the
// given keys in strictly ascending ordinal order, no whitespace, minimal
// double-quoted strings. order is the caller-resolved key order (either
// one of the four canonical orders, or an arbitrary parameter set sorted
// here by ordinal byte comparison).
func canonicalBytes(buf []byte, params Params, order []string, kty string) ([]byte, error) {
	buf = buf[:0]
	buf = append(buf, '{')
	for i, key := range order {
		val, ok := params[key]
		if !ok {
			return nil, &ErrParameterMissing{Parameter: key, Kty: kty}
		}
		if val == "" {
			return nil, &ErrParameterEmpty{Parameter: key, Kty: kty}
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = append(buf, key...)
		buf = append(buf, '"', ':', '"')
		buf = append(buf, val...)
		buf = append(buf, '"')
	}
	buf = append(buf, '}')
	return buf, nil
}

// canonicalSize computes the exact byte length canonicalBytes will
// produce, so the sensitive pool can be rented at the precise size (spec
// §4.5: "sized exactly sum(|keys|) + sum(|values|) + fixed_overhead").
func canonicalSize(params Params, order []string) int {
	// Per entry: `"key":"value"` = 1 + len(key) + 1 + 1 + 1 + len(value) + 1
	// i.e. len(key) + len(value) + 5, plus one ',' between entries, plus
	// the enclosing braces.
	size := 2 // braces
	for i, key := range order {
		size += len(key) + len(params[key]) + 5
		if i > 0 {
			size++ // comma
		}
	}
	return size
}

// ComputeThumbprint computes the RFC 7638 thumbprint for a well-known
// key type (EC, OKP, RSA, oct), returning an owning sensitive buffer
// holding the raw 32-byte SHA-256 digest. The caller must Release it.
func ComputeThumbprint(kty string, params Params) (*secret.Buffer, error) {
	order, err := RequiredParamsFor(kty)
	if err != nil {
		return nil, err
	}
	return computeThumbprint(params, order, kty)
}

// ComputeThumbprintForParams computes a thumbprint over an arbitrary
// parameter set, sorting keys by ordinal byte comparison rather than
// using one of the four fixed canonical orders (spec §4.5: "For an
// arbitrary parameter set, keys are sorted by ordinal byte comparison").
func ComputeThumbprintForParams(params Params) (*secret.Buffer, error) {
	order := make([]string, 0, len(params))
	for k := range params {
		order = append(order, k)
	}
	sort.Strings(order)
	return computeThumbprint(params, order, "")
}

func computeThumbprint(params Params, order []string, kty string) (*secret.Buffer, error) {
	size := canonicalSize(params, order)
	scratch := secret.Shared.Rent(size)
	defer scratch.Release()

	canonical, err := canonicalBytes(scratch.Bytes()[:0], params, order, kty)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(canonical)
	out := secret.Shared.Rent(len(sum))
	copy(out.Bytes(), sum[:])
	return out, nil
}
