package testutil_test

import (
	"testing"

	"github.com/Lumoin/Verifiable-sub005/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestCurrentOSMatchesOneOfTheFourBuckets(t *testing.T) {
	os := testutil.CurrentOS()
	require.Contains(t, []testutil.OS{testutil.Windows, testutil.Linux, testutil.MacOS, testutil.Other}, os)
}

func TestOSStringIsHumanReadable(t *testing.T) {
	require.Equal(t, "Linux", testutil.Linux.String())
	require.Equal(t, "Windows", testutil.Windows.String())
	require.Equal(t, "MacOS", testutil.MacOS.String())
	require.Equal(t, "Other", testutil.Other.String())
}

func TestRunningInCIReflectsEnvironment(t *testing.T) {
	t.Setenv("CI", "true")
	require.True(t, testutil.RunningInCI())

	t.Setenv("CI", "")
	require.False(t, testutil.RunningInCI())
}

func TestTPMIsAvailableWithoutFlagIsFalse(t *testing.T) {
	require.False(t, testutil.TPMIsAvailable())
}

func TestBaseTestRunsCleanupsInReverseOrder(t *testing.T) {
	var order []int
	bt := &testutil.BaseTest{}
	bt.AddCleanup(func() { order = append(order, 1) })
	bt.AddCleanup(func() { order = append(order, 2) })
	bt.TearDownTest(nil)
	require.Equal(t, []int{2, 1}, order)
}
