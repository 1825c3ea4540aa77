// Package policy implements a TPM2_PolicyOR digest-tree builder and
// signed policy authorizations, supplementing the distilled
// specification's "policy" session kind with the operation detail a
// complete implementation needs (spec §3 "TPM session").
package policy

import (
	"errors"

	"github.com/Lumoin/Verifiable-sub005/tpm2"
)

// maxORDigests bounds the tree depth the same way the teacher lineage
// does: 4096 leaf digests is a depth-4 tree of 8-way nodes.
const maxORDigests = 4096

// maxORFanout is the number of digests TPM2_PolicyOR accepts in a
// single assertion.
const maxORFanout = 8

// ErrNoDigests is returned by NewORTree when given an empty digest list.
var ErrNoDigests = errors.New("policy: no digests")

// ErrTooManyDigests is returned by NewORTree when the digest count
// exceeds maxORDigests.
var ErrTooManyDigests = errors.New("policy: too many digests")

// ensureSufficientORDigests pads a single digest into a matching pair,
// since TPM2_PolicyOR requires more than one operand.
func ensureSufficientORDigests(digests [][]byte) [][]byte {
	if len(digests) == 1 {
		return [][]byte{digests[0], digests[0]}
	}
	return digests
}

type orNode struct {
	parent  *orNode
	digests [][]byte
}

// ORTree computes the chain of TPM2_PolicyOR assertions needed to admit
// any one of a set of leaf policy digests, in trees of up to
// maxORFanout siblings per node as TPM2_PolicyOR itself requires.
type ORTree struct {
	alg       tpm2.HashAlgorithmID
	leafNodes []*orNode
}

// policyORDigest computes the session-digest update TPM2_PolicyOR
// applies: H(zero-digest || TPM_CC_PolicyOR || digests...), where
// zero-digest is an all-zero digest of the algorithm's size. This
// matches TPM2_PolicyOR always resetting the running digest rather than
// extending it, so that any branch taken independently converges on the
// same parent digest.
func policyORDigest(alg tpm2.HashAlgorithmID, digests [][]byte) []byte {
	h := tpm2.NewHash(alg)
	h.Write(make([]byte, alg.Size()))
	ccBuf := []byte{0x00, 0x00, 0x01, 0x71} // TPM_CC_PolicyOR
	h.Write(ccBuf)
	for _, d := range digests {
		h.Write(d)
	}
	return h.Sum(nil)
}

// NewORTree builds the tree of TPM2_PolicyOR nodes over digests.
func NewORTree(alg tpm2.HashAlgorithmID, digests [][]byte) (*ORTree, error) {
	if len(digests) == 0 {
		return nil, ErrNoDigests
	}
	if len(digests) > maxORDigests {
		return nil, ErrTooManyDigests
	}

	var out *ORTree
	var prev []*orNode

	for len(prev) != 1 {
		var current []*orNode
		var nextDigests [][]byte

		for len(digests) > 0 {
			n := len(digests)
			if n > maxORFanout {
				n = maxORFanout
			}

			node := &orNode{digests: ensureSufficientORDigests(digests[:n])}
			current = append(current, node)
			nextDigests = append(nextDigests, policyORDigest(alg, node.digests))
			digests = digests[n:]
		}

		for i, child := range prev {
			child.parent = current[i>>3]
		}

		prev = current
		digests = nextDigests

		if out == nil {
			out = &ORTree{alg: alg, leafNodes: current}
		}
	}

	return out, nil
}

// SelectBranch returns the ordered list of TPM2_PolicyOR operand sets a
// session must execute, root-most last, to admit leaf digest i.
func (t *ORTree) SelectBranch(i int) [][][]byte {
	var out [][][]byte
	node := t.leafNodes[i>>3]
	for node != nil {
		out = append(out, ensureSufficientORDigests(node.digests))
		node = node.parent
	}
	return out
}

// RootDigest returns the final policy digest the tree converges on,
// which is what a caller sets as the object's AuthPolicy.
func (t *ORTree) RootDigest() []byte {
	branch := t.SelectBranch(0)
	return policyORDigest(t.alg, branch[len(branch)-1])
}
