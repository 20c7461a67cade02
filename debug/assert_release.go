//go:build !debug

// Package debug provides assertions that can be enabled with the debug build
// tag or will otherwise compile to no-ops.
//
// The loader runs before any trap handler of its own is installed, so a
// failed assertion ends in the runtime's panic path. Fatal conditions that
// must be checked in release builds go through machine's die instead.
package debug

// Guard more complex assertions (i.e. anything that reads hardware state) with
// `if debug.Enabled{...}`, otherwise they can't be removed in release builds.
const Enabled = false

// Assert panics if b is false.
func Assert(b bool, message string) {}

// AssertBits panics if any bit of mask differs between got and want.
func AssertBits(got, want, mask uint64, message string) {}
