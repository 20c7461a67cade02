package machine

import "github.com/rvboot/bbl/hart"

// selfTest checks that the software interrupt latch and the timer compare
// register of h are wired to its mip. The interrupts of h must have been
// initialized.
func (l *Loader) selfTest(h hart.Hart) bool {
	local := l.Harts.Get(hart.ID(h))
	if local.IPI == nil || local.Timecmp == nil {
		return false
	}
	pending := func(bit uint64) bool { return h.Read(hart.Mip)&bit != 0 }

	ok := !pending(hart.IntMSIP)
	local.IPI.Store(1)
	ok = ok && pending(hart.IntMSIP)
	local.IPI.Store(0)
	ok = ok && !pending(hart.IntMSIP)

	ok = ok && !pending(hart.IntMTIP)
	local.Timecmp.Store(0)
	ok = ok && pending(hart.IntMTIP)
	local.Timecmp.Store(^uint64(0))
	ok = ok && !pending(hart.IntMTIP)

	if ok {
		l.printm("bbl: self test passed\r\n")
	}
	return ok
}
