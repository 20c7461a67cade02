package machine

import (
	"github.com/rvboot/bbl/drivers/plic"
	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/platform"
)

// initHartInterrupts silences the software interrupt and the timer of the
// hart owning local and, if there are external interrupt sources, routes
// them to its supervisor context.
func initHartInterrupts(h hart.Hart, local *platform.Local, sources int) {
	if local.IPI != nil {
		local.IPI.Store(0)
	}
	if local.Timecmp != nil {
		local.Timecmp.Store(^uint64(0))
	}
	h.Write(hart.Mip, 0)

	if sources == 0 {
		return
	}
	plic.InitHart(local)
}

// WakeHarts raises the software interrupt of every hart that is present and
// not disabled. All writes to c must be complete before the call.
func WakeHarts(c *platform.Config, t *platform.Table) {
	wake := c.Wakeable()
	for id := uintptr(0); id < platform.MaxHarts; id++ {
		if wake>>id&1 == 0 {
			continue
		}
		if ipi := t.Get(id).IPI; ipi != nil {
			ipi.Store(1)
		}
	}
}

// MegapageSize is the granularity of the memory handed to the payload.
const MegapageSize = 1 << 21

// NormalizeMemory rounds size down to whole megapages.
func NormalizeMemory(size uintptr) uintptr {
	return size / MegapageSize * MegapageSize
}
