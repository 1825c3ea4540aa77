package sd_test

import (
	"context"
	"testing"

	"github.com/Lumoin/Verifiable-sub005/sd"
	"github.com/stretchr/testify/require"
)

func TestFixedTableResolverResolvesKnownURI(t *testing.T) {
	r := sd.NewWellKnownTestResolver()
	body, err := r.Resolve(context.Background(), sd.ContextVCDataModelV2)
	require.NoError(t, err)
	require.NotEmpty(t, body)
}

func TestFixedTableResolverRejectsUnknownURI(t *testing.T) {
	r := sd.NewWellKnownTestResolver()
	_, err := r.Resolve(context.Background(), "https://example.com/not-listed")
	require.Error(t, err)
	var notWhitelisted *sd.ErrContextNotWhitelisted
	require.ErrorAs(t, err, &notWhitelisted)
}

func TestNewAllowListResolverFromTestResolverHashes(t *testing.T) {
	table := sd.NewWellKnownTestResolver()
	hashes := table.Hashes()

	// AllowListResolver fetches over HTTPS, which a unit test does not
	// reach, so its verify/cache path is not exercised here; this test
	// only checks that a resolver can be constructed from the fixed
	// table's hashes.
	r := sd.NewAllowListResolver(hashes)
	require.NotNil(t, r)
}

func TestContextIntegrityMismatchErrorMessage(t *testing.T) {
	err := &sd.ErrContextIntegrityMismatch{URI: "https://example.com/ctx", Want: "aaaa", Got: "bbbb"}
	require.Contains(t, err.Error(), "aaaa")
	require.Contains(t, err.Error(), "bbbb")
}
