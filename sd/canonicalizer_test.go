package sd_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Lumoin/Verifiable-sub005/sd"
	"github.com/stretchr/testify/require"
)

// failingResolver always errors, letting the test confirm that a
// resolver failure surfaces from Canonicalize rather than being
// swallowed.
type failingResolver struct {
	err error
}

func (f failingResolver) Resolve(_ context.Context, _ string) ([]byte, error) {
	return nil, f.err
}

func TestNewJSONGoldCanonicalizerStoresResolver(t *testing.T) {
	r := sd.NewWellKnownTestResolver()
	c := sd.NewJSONGoldCanonicalizer(r)
	require.NotNil(t, c)
	require.Equal(t, r, c.Resolver)
}

func TestJSONGoldCanonicalizerSurfacesContextResolutionFailure(t *testing.T) {
	r := failingResolver{err: errors.New("boom")}
	c := sd.NewJSONGoldCanonicalizer(r)

	doc := map[string]interface{}{
		"@context": "https://example.com/unreachable-context",
		"id":       "urn:uuid:test",
	}
	_, err := c.Canonicalize(context.Background(), doc)
	require.Error(t, err)
	var failed *sd.ErrCanonicalizationFailed
	require.ErrorAs(t, err, &failed)
}
