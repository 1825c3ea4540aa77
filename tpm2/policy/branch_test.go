package policy_test

import (
	"testing"

	check "gopkg.in/check.v1"

	"github.com/Lumoin/Verifiable-sub005/internal/testutil"
	"github.com/Lumoin/Verifiable-sub005/tpm2"
	"github.com/Lumoin/Verifiable-sub005/tpm2/policy"
)

func TestGoCheck(t *testing.T) { check.TestingT(t) }

type branchSuite struct {
	testutil.BaseTest
}

var _ = check.Suite(&branchSuite{})

func leafDigest(alg tpm2.HashAlgorithmID, b byte) []byte {
	d := make([]byte, alg.Size())
	d[0] = b
	return d
}

func (s *branchSuite) TestEveryLeafSelectsAWellFormedBranch(c *check.C) {
	alg := tpm2.HashAlgorithmSHA256
	digests := make([][]byte, 13)
	for i := range digests {
		digests[i] = leafDigest(alg, byte(i+1))
	}

	tree, err := policy.NewORTree(alg, digests)
	c.Assert(err, check.IsNil)

	for i := range digests {
		branch := tree.SelectBranch(i)
		c.Check(len(branch) >= 1, check.Equals, true)
		for _, operands := range branch {
			c.Check(len(operands) >= 2, check.Equals, true)
			c.Check(len(operands) <= 8, check.Equals, true)
		}
	}
}

func (s *branchSuite) TestRootDigestHasCorrectSize(c *check.C) {
	alg := tpm2.HashAlgorithmSHA256
	digests := [][]byte{leafDigest(alg, 1), leafDigest(alg, 2)}

	tree, err := policy.NewORTree(alg, digests)
	c.Assert(err, check.IsNil)
	c.Check(len(tree.RootDigest()), check.Equals, alg.Size())
}
