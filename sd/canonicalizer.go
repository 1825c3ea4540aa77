package sd

import (
	"context"
	"fmt"
	"strings"

	jsongold "github.com/piprate/json-gold/ld"
)

// Canonicalizer turns a JSON-LD document into its RDF Dataset
// Canonicalization (RDFC-1.0) N-Quads form: the concatenation of N-Quad
// lines, each terminated by "\n" (spec §6 "JSON-LD canonicalizer
// contract"). The selective-disclosure core depends only on this
// contract; implementations are external collaborators.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, docJSON map[string]interface{}) (string, error)
}

// ErrCanonicalizationFailed wraps a failure from the underlying
// canonicalizer (spec §4.7.3 errors, §7 "Selection errors").
type ErrCanonicalizationFailed struct {
	err error
}

func (e *ErrCanonicalizationFailed) Error() string {
	return fmt.Sprintf("sd: canonicalization failed: %v", e.err)
}

func (e *ErrCanonicalizationFailed) Unwrap() error { return e.err }

// JSONGoldCanonicalizer implements Canonicalizer over
// github.com/piprate/json-gold, the ecosystem's RDFC-1.0/JSON-LD 1.1
// processor, using the given Resolver as the document loader for
// "@context" URLs so that context-integrity verification (spec §4.8)
// happens on every dereference the canonicalizer makes.
type JSONGoldCanonicalizer struct {
	Resolver Resolver
}

// NewJSONGoldCanonicalizer returns a Canonicalizer backed by json-gold,
// resolving external contexts through r.
func NewJSONGoldCanonicalizer(r Resolver) *JSONGoldCanonicalizer {
	return &JSONGoldCanonicalizer{Resolver: r}
}

func (c *JSONGoldCanonicalizer) Canonicalize(ctx context.Context, docJSON map[string]interface{}) (string, error) {
	proc := jsongold.NewJsonLdProcessor()
	opts := jsongold.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	opts.Algorithm = "URDNA2015"
	if c.Resolver != nil {
		opts.DocumentLoader = &resolverDocumentLoader{ctx: ctx, resolver: c.Resolver}
	}

	normalized, err := proc.Normalize(docJSON, opts)
	if err != nil {
		return "", &ErrCanonicalizationFailed{err: err}
	}
	out, ok := normalized.(string)
	if !ok {
		return "", &ErrCanonicalizationFailed{err: fmt.Errorf("unexpected Normalize result type %T", normalized)}
	}
	return out, nil
}

// resolverDocumentLoader adapts a Resolver to json-gold's DocumentLoader
// interface, so every "@context" dereference during canonicalization
// passes through context-integrity verification.
type resolverDocumentLoader struct {
	ctx      context.Context
	resolver Resolver
}

func (l *resolverDocumentLoader) LoadDocument(u string) (*jsongold.RemoteDocument, error) {
	body, err := l.resolver.Resolve(l.ctx, u)
	if err != nil {
		return nil, err
	}
	doc, err := jsongold.DocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	return &jsongold.RemoteDocument{DocumentURL: u, Document: doc}, nil
}
