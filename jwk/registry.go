package jwk

import "sync"

// Token is a canonical instance of a well-known JOSE/JWK identifier
// string (algorithm, curve, key type, property name, ...). Two Tokens
// for the same family and value compare equal by reference once both
// have passed through Canonicalize (spec §4.6).
type Token struct {
	family string
	value  string
}

// String returns the token's underlying text.
func (t *Token) String() string { return t.value }

// Family identifies which registry a token belongs to (e.g. "alg",
// "crv", "kty"), mostly useful for diagnostics.
func (t *Token) Family() string { return t.family }

// family is one interned-string table plus the accessors spec §4.6
// requires: canonical-instance lookup by name, an is_X membership
// predicate, and Canonicalize.
type family struct {
	mu    sync.RWMutex
	label string
	byVal map[string]*Token
}

func newFamily(name string, values []string) *family {
	f := &family{label: name, byVal: make(map[string]*Token, len(values))}
	for _, v := range values {
		f.byVal[v] = &Token{family: name, value: v}
	}
	return f
}

// Lookup returns the canonical Token for v, or nil if v is not a member.
func (f *family) Lookup(v string) *Token {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.byVal[v]
}

var (
	// Algorithms holds the JWA "alg" values this registry recognizes
	// (signature and key-management algorithms; RFC 7518 §3.1/§4.1).
	Algorithms = newFamily("alg", []string{
		"HS256", "HS384", "HS512",
		"RS256", "RS384", "RS512",
		"ES256", "ES384", "ES512", "ES256K",
		"PS256", "PS384", "PS512",
		"EdDSA",
		"RSA-OAEP", "RSA-OAEP-256", "RSA1_5",
		"A128KW", "A192KW", "A256KW",
		"dir",
	})

	// Curves holds recognized "crv" values (RFC 7518 §6.2.1.1, RFC 8037
	// §2).
	Curves = newFamily("crv", []string{
		"P-256", "P-384", "P-521", "secp256k1", "Ed25519", "Ed448", "X25519", "X448",
	})

	// KeyTypes holds recognized "kty" values (RFC 7518 §6.1).
	KeyTypes = newFamily("kty", []string{"EC", "RSA", "oct", "OKP"})

	// Properties holds recognized JWK member names across RFC 7517/7518.
	Properties = newFamily("prop", []string{
		"kty", "use", "key_ops", "alg", "kid", "x5u", "x5c", "x5t", "x5t#S256",
		"crv", "x", "y", "n", "e", "d", "p", "q", "dp", "dq", "qi", "k",
	})

	// ContentEncryptionAlgorithms holds recognized JWE "enc" values (RFC
	// 7518 §5.1).
	ContentEncryptionAlgorithms = newFamily("enc", []string{
		"A128CBC-HS256", "A192CBC-HS384", "A256CBC-HS512", "A128GCM", "A192GCM", "A256GCM",
	})
)

// IsAlgorithm reports whether s names a recognized JWA algorithm, by
// reference identity first and ordinal string equality otherwise (spec
// §4.6: "first compares by reference identity and, if that fails, by
// ordinal string equality").
func IsAlgorithm(s *Token) bool { return isMember(Algorithms, s) }

// IsCurve reports whether s names a recognized curve.
func IsCurve(s *Token) bool { return isMember(Curves, s) }

// IsKeyType reports whether s names a recognized key type.
func IsKeyType(s *Token) bool { return isMember(KeyTypes, s) }

// IsProperty reports whether s names a recognized JWK member.
func IsProperty(s *Token) bool { return isMember(Properties, s) }

// IsContentEncryptionAlgorithm reports whether s names a recognized JWE
// "enc" value.
func IsContentEncryptionAlgorithm(s *Token) bool { return isMember(ContentEncryptionAlgorithms, s) }

func isMember(f *family, t *Token) bool {
	if t == nil {
		return false
	}
	if canonical := f.Lookup(t.value); canonical != nil {
		if canonical == t {
			return true
		}
		return canonical.value == t.value
	}
	return false
}

// IsAlgorithmString is the string-valued counterpart of IsAlgorithm, for
// callers holding a plain string rather than an interned Token.
func IsAlgorithmString(s string) bool { return Algorithms.Lookup(s) != nil }

// IsCurveString is the string-valued counterpart of IsCurve.
func IsCurveString(s string) bool { return Curves.Lookup(s) != nil }

// IsKeyTypeString is the string-valued counterpart of IsKeyType.
func IsKeyTypeString(s string) bool { return KeyTypes.Lookup(s) != nil }

// CanonicalizeAlgorithm returns the canonical Token for s if s names a
// recognized algorithm, else a freshly allocated, non-interned Token
// wrapping s unchanged (spec §4.6: "canonicalize(s) returns the
// canonical instance for strings that equal one by value, else returns s
// unchanged").
func CanonicalizeAlgorithm(s string) *Token { return canonicalToken(Algorithms, s) }

// CanonicalizeCurve is the curve-family counterpart of CanonicalizeAlgorithm.
func CanonicalizeCurve(s string) *Token { return canonicalToken(Curves, s) }

// CanonicalizeKeyType is the key-type-family counterpart of CanonicalizeAlgorithm.
func CanonicalizeKeyType(s string) *Token { return canonicalToken(KeyTypes, s) }

func canonicalToken(f *family, s string) *Token {
	if t := f.Lookup(s); t != nil {
		return t
	}
	return &Token{family: f.label, value: s}
}
