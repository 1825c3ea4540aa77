package policy_test

import (
	"testing"

	"github.com/Lumoin/Verifiable-sub005/tpm2"
	"github.com/Lumoin/Verifiable-sub005/tpm2/policy"
	"github.com/stretchr/testify/require"
)

func digest(b byte) []byte {
	d := make([]byte, tpm2.HashAlgorithmSHA256.Size())
	d[0] = b
	return d
}

func TestNewORTreeRejectsEmptyDigests(t *testing.T) {
	_, err := policy.NewORTree(tpm2.HashAlgorithmSHA256, nil)
	require.ErrorIs(t, err, policy.ErrNoDigests)
}

func TestNewORTreeSingleNodeForSmallDigestSet(t *testing.T) {
	digests := [][]byte{digest(1), digest(2), digest(3)}
	tree, err := policy.NewORTree(tpm2.HashAlgorithmSHA256, digests)
	require.NoError(t, err)

	branch0 := tree.SelectBranch(0)
	require.Len(t, branch0, 1)
	require.NotEmpty(t, tree.RootDigest())
}

func TestORTreeBuildsMultiLevelForLargeDigestSet(t *testing.T) {
	digests := make([][]byte, 20)
	for i := range digests {
		digests[i] = digest(byte(i + 1))
	}
	tree, err := policy.NewORTree(tpm2.HashAlgorithmSHA256, digests)
	require.NoError(t, err)

	branchFirst := tree.SelectBranch(0)
	branchLast := tree.SelectBranch(len(digests) - 1)
	require.Greater(t, len(branchFirst), 1)
	require.Equal(t, tree.RootDigest(), tree.RootDigest())
	_ = branchLast
}

func TestORTreeEveryBranchConvergesOnSameRootDigest(t *testing.T) {
	digests := make([][]byte, 17)
	for i := range digests {
		digests[i] = digest(byte(i + 1))
	}
	tree, err := policy.NewORTree(tpm2.HashAlgorithmSHA256, digests)
	require.NoError(t, err)

	root := tree.RootDigest()
	first := tree.SelectBranch(0)
	for i := range digests {
		// RootDigest always recomputes from branch 0's final node; this
		// loop checks that every leaf's SelectBranch is non-empty and
		// ends at that same root node.
		branch := tree.SelectBranch(i)
		require.NotEmpty(t, branch)
		require.Equal(t, first[len(first)-1], branch[len(branch)-1])
	}
	require.Len(t, root, tpm2.HashAlgorithmSHA256.Size())
}

func TestTooManyDigestsRejected(t *testing.T) {
	digests := make([][]byte, 4097)
	for i := range digests {
		digests[i] = digest(1)
	}
	_, err := policy.NewORTree(tpm2.HashAlgorithmSHA256, digests)
	require.ErrorIs(t, err, policy.ErrTooManyDigests)
}
