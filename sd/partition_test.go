package sd_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Lumoin/Verifiable-sub005/sd"
	"github.com/stretchr/testify/require"
)

// stubCanonicalizer produces one deterministic, sorted "statement" per
// object member in the document (nested objects included, with an empty
// value), standing in for a real RDFC-1.0
// canonicalizer so partitioning logic can be exercised without the
// json-gold dependency. Blank-node labels are synthesized per object so
// the blank-node-agnostic comparison in partition.go has something real
// to strip.
type stubCanonicalizer struct{}

func (stubCanonicalizer) Canonicalize(_ context.Context, doc map[string]interface{}) (string, error) {
	var lines []string
	var walk func(prefix string, v interface{})
	counter := 0
	walk = func(prefix string, v interface{}) {
		switch val := v.(type) {
		case map[string]interface{}:
			counter++
			node := fmt.Sprintf("_:c14n%d", counter)
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("%s <%s%s> %q .", node, prefix, k, fmt.Sprintf("%v", leafOf(val[k]))))
				walk(prefix+k+"/", val[k])
			}
		}
	}
	walk("", doc)
	sort.Strings(lines)
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out, nil
}

func leafOf(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return val
	}
}

func TestPartitionStatementsCompleteOverScenario5(t *testing.T) {
	doc := loadScenario5(t)
	c := stubCanonicalizer{}

	p, err := sd.PartitionStatements(context.Background(), doc, []sd.Pointer{
		sd.ParsePointer("/issuer"),
		sd.ParsePointer("/credentialSubject/givenName"),
	}, c)
	require.NoError(t, err)
	require.True(t, p.Complete())
	require.NotEmpty(t, p.MandatoryIndices)
	require.NotEmpty(t, p.NonMandatoryIndices)
}

func TestPartitionApplyToRejectsLengthMismatch(t *testing.T) {
	doc := loadScenario5(t)
	c := stubCanonicalizer{}
	p, err := sd.PartitionStatements(context.Background(), doc, nil, c)
	require.NoError(t, err)

	_, _, err = p.ApplyTo(p.AllStatements[:len(p.AllStatements)-1])
	require.Error(t, err)
	var mismatch *sd.ErrPartitionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestPartitionApplyToPreservesPositionalSplit(t *testing.T) {
	doc := loadScenario5(t)
	c := stubCanonicalizer{}
	p, err := sd.PartitionStatements(context.Background(), doc, []sd.Pointer{
		sd.ParsePointer("/issuer"),
	}, c)
	require.NoError(t, err)

	mandatory, nonMandatory, err := p.ApplyTo(p.AllStatements)
	require.NoError(t, err)
	require.Len(t, mandatory, len(p.MandatoryIndices))
	require.Len(t, nonMandatory, len(p.NonMandatoryIndices))
}

func TestPartitionNilPointersIsComplete(t *testing.T) {
	doc := loadScenario5(t)
	c := stubCanonicalizer{}

	p, err := sd.PartitionStatements(context.Background(), doc, nil, c)
	require.NoError(t, err)
	require.True(t, p.Complete())
}

func TestCanonicalizationFailureErrorMessage(t *testing.T) {
	var err error = &sd.ErrCanonicalizationFailed{}
	require.Error(t, err)
	require.Contains(t, err.Error(), "canonicalization failed")
}
