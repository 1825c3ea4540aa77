package sd

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Partition is the result of partitioning a document's canonicalized
// statements into those required by a selective disclosure (mandatory)
// and those the holder may withhold (non-mandatory), per spec §3
// "Statement partition" / §4.7.3.
type Partition struct {
	AllStatements     []string
	MandatoryIndices  []int
	NonMandatoryIndices []int
}

// ErrPartitionMismatch is returned by ApplyTo when the caller's
// statement list doesn't have the same length as the partition was
// computed over (spec §4.7.3 "ApplyTo operation" invariant).
type ErrPartitionMismatch struct {
	Want, Got int
}

func (e *ErrPartitionMismatch) Error() string {
	return fmt.Sprintf("sd: apply_to length mismatch: partition has %d statements, got %d", e.Want, e.Got)
}

// PartitionStatements canonicalizes docJSON and the selection document
// derived from pointers, then classifies each of docJSON's canonical
// statements as mandatory (it also appears, modulo blank-node
// relabeling, among the selection's canonical statements) or
// non-mandatory (spec §4.7.3 algorithm).
func PartitionStatements(ctx context.Context, docJSON map[string]interface{}, pointers []Pointer, canonicalizer Canonicalizer) (*Partition, error) {
	all, err := canonicalizeToLines(ctx, canonicalizer, docJSON)
	if err != nil {
		return nil, err
	}

	selection, err := SelectFragments(docJSON, pointers)
	if err != nil {
		return nil, err
	}
	mandatoryLines, err := canonicalizeToLines(ctx, canonicalizer, selection)
	if err != nil {
		return nil, err
	}

	mandatorySet := make(map[string]struct{}, len(mandatoryLines))
	for _, line := range mandatoryLines {
		mandatorySet[blankNodeAgnosticKey(line)] = struct{}{}
	}

	p := &Partition{AllStatements: all}
	for i, line := range all {
		if _, ok := mandatorySet[blankNodeAgnosticKey(line)]; ok {
			p.MandatoryIndices = append(p.MandatoryIndices, i)
		} else {
			p.NonMandatoryIndices = append(p.NonMandatoryIndices, i)
		}
	}
	return p, nil
}

func canonicalizeToLines(ctx context.Context, c Canonicalizer, doc map[string]interface{}) ([]string, error) {
	nquads, err := c.Canonicalize(ctx, doc)
	if err != nil {
		return nil, &ErrCanonicalizationFailed{err: err}
	}
	nquads = strings.TrimRight(nquads, "\n")
	if nquads == "" {
		return nil, nil
	}
	return strings.Split(nquads, "\n"), nil
}

// blankNodeLabel matches the canonical blank-node label form the RDFC-1.0
// algorithm assigns ("_:c14n<n>"), so comparisons can be made
// label-agnostic (spec §4.7.3 "Blank-node relabeling").
var blankNodeLabel = regexp.MustCompile(`_:c14n\d+`)

// blankNodeAgnosticKey strips canonical blank-node labels from an N-Quad
// line before comparison, since the same concrete node may receive a
// different label across two independent canonicalizations.
func blankNodeAgnosticKey(line string) string {
	return blankNodeLabel.ReplaceAllString(line, "_:c14n*")
}

// ApplyTo partitions other (an ordered statement list of the same length
// as p.AllStatements, e.g. produced by re-canonicalizing a signed proof)
// into the same mandatory/non-mandatory split by position.
func (p *Partition) ApplyTo(other []string) (mandatory, nonMandatory []string, err error) {
	if len(other) != len(p.AllStatements) {
		return nil, nil, &ErrPartitionMismatch{Want: len(p.AllStatements), Got: len(other)}
	}
	mandatory = make([]string, 0, len(p.MandatoryIndices))
	for _, i := range p.MandatoryIndices {
		mandatory = append(mandatory, other[i])
	}
	nonMandatory = make([]string, 0, len(p.NonMandatoryIndices))
	for _, i := range p.NonMandatoryIndices {
		nonMandatory = append(nonMandatory, other[i])
	}
	return mandatory, nonMandatory, nil
}

// Complete reports the spec §8 item 6 invariant: the two index sets are
// disjoint and their union is exactly [0, len(AllStatements)).
func (p *Partition) Complete() bool {
	seen := make(map[int]bool, len(p.AllStatements))
	for _, i := range p.MandatoryIndices {
		if seen[i] {
			return false
		}
		seen[i] = true
	}
	for _, i := range p.NonMandatoryIndices {
		if seen[i] {
			return false
		}
		seen[i] = true
	}
	if len(seen) != len(p.AllStatements) {
		return false
	}
	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for i, v := range indices {
		if v != i {
			return false
		}
	}
	return true
}
