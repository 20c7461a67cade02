//go:build debug

package debug

// Guard more complex assertions (i.e. anything that reads hardware state) with
// `if debug.Enabled{...}`, otherwise they can't be removed in release builds.
const Enabled = true

func Assert(b bool, message string) {
	if !b {
		panic(message)
	}
}

// AssertBits panics if any bit of mask differs between got and want.
func AssertBits(got, want, mask uint64, message string) {
	if (got^want)&mask != 0 {
		panic(message)
	}
}
