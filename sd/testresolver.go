package sd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// FixedTableResolver is the embedded test resolver described in spec
// §4.8 "Embedded test resolver": a fixed in-memory table keyed by URL,
// used by tests that need deterministic context resolution without
// network access.
type FixedTableResolver struct {
	table map[string][]byte
}

// NewFixedTableResolver returns a resolver serving exactly the given
// url -> body table.
func NewFixedTableResolver(table map[string][]byte) *FixedTableResolver {
	return &FixedTableResolver{table: table}
}

func (r *FixedTableResolver) Resolve(_ context.Context, uri string) ([]byte, error) {
	body, ok := r.table[uri]
	if !ok {
		return nil, &ErrContextNotWhitelisted{URI: uri}
	}
	return body, nil
}

// Hashes returns the uri -> lowercase-hex-sha256 table this resolver's
// contents would produce, suitable for seeding an AllowListResolver's
// allow-list in tests that exercise the integrity-checking path end to
// end rather than the fixed-table shortcut.
func (r *FixedTableResolver) Hashes() map[string]string {
	out := make(map[string]string, len(r.table))
	for uri, body := range r.table {
		sum := sha256.Sum256(body)
		out[uri] = hex.EncodeToString(sum[:])
	}
	return out
}

// Well-known context document URLs named in spec §6. Bodies embedded
// here are minimal representative fixtures standing in for the real W3C
// documents (fetching and vendoring the actual specification text is out
// of scope); production deployments populate AllowListResolver's
// allow-list with the real documents' hashes.
const (
	ContextVCDataModelV2        = "https://www.w3.org/ns/credentials/v2"
	ContextVCExamplesV2         = "https://www.w3.org/ns/credentials/examples/v2"
	ContextCCGCitizenshipV4RC1  = "https://w3id.org/citizenship/v4rc1"
)

// NewWellKnownTestResolver returns a FixedTableResolver seeded with the
// three context documents spec §6 names, for use as a drop-in test
// double during selective-disclosure tests.
func NewWellKnownTestResolver() *FixedTableResolver {
	return NewFixedTableResolver(map[string][]byte{
		ContextVCDataModelV2: []byte(`{"@context":{"@version":1.1,"id":"@id","type":"@type"}}`),
		ContextVCExamplesV2:  []byte(`{"@context":{"givenName":"https://schema.org/givenName","familyName":"https://schema.org/familyName","birthDate":"https://schema.org/birthDate"}}`),
		ContextCCGCitizenshipV4RC1: []byte(`{"@context":{"@version":1.1,"Person":"https://schema.org/Person"}}`),
	})
}
