package testutil

import (
	check "gopkg.in/check.v1"
)

// BaseTest is an embeddable gocheck fixture providing an AddCleanup
// hook, mirroring the teacher lineage's testutil.BaseTest used by
// suites built on gopkg.in/check.v1 (mvo5-go-tpm2/linux/linux_test.go,
// mvo5-go-tpm2/policyutil/branch_test.go).
type BaseTest struct {
	cleanups []func()
}

// AddCleanup registers fn to run in reverse registration order when
// TearDownTest runs.
func (b *BaseTest) AddCleanup(fn func()) {
	b.cleanups = append(b.cleanups, fn)
}

// SetUpTest resets the cleanup list. Suites embedding BaseTest that
// define their own SetUpTest must call this explicitly.
func (b *BaseTest) SetUpTest(c *check.C) {
	b.cleanups = nil
}

// TearDownTest runs registered cleanups in reverse order. Suites
// embedding BaseTest that define their own TearDownTest must call this
// explicitly.
func (b *BaseTest) TearDownTest(c *check.C) {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}
