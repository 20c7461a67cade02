package machine

import (
	"github.com/rvboot/bbl/hart"
)

// Mode is the addressing mode of the loader. It decides how protection is
// set up, which exceptions a supervisor can handle and how control leaves
// machine mode.
type Mode interface {
	// Vector is the register holding the machine trap vector.
	Vector() hart.Vector

	// SetupPMP grants lower privilege levels access to all of memory, if
	// physical memory protection is implemented.
	SetupPMP(h hart.Hart)

	// Exceptions returns the medeleg mask.
	Exceptions() uint64

	// Enter transfers control as described by f. It does not return.
	Enter(h hart.Hart, f *Frame)
}

const baseExceptions = 1<<hart.CauseMisalignedFetch |
	1<<hart.CauseFetchPageFault |
	1<<hart.CauseBreakpoint |
	1<<hart.CauseLoadPageFault |
	1<<hart.CauseStorePageFault |
	1<<hart.CauseUserEcall

// Standard is plain integer addressing.
type Standard struct{}

func (Standard) Vector() hart.Vector  { return hart.TrapVector }
func (Standard) Exceptions() uint64   { return baseExceptions }
func (Standard) SetupPMP(h hart.Hart) { setupPMP(h, hart.TrapVector) }

func (Standard) Enter(h hart.Hart, f *Frame) {
	h.Write(hart.Mstatus, f.Status)
	h.Write(hart.Mscratch, uint64(f.Scratch))
	if f.Prev == hart.Machine {
		h.Call(f.Entry, f.Args[0], f.Args[1])
		return
	}
	h.Write(hart.Mepc, uint64(f.Entry))
	h.Return(f.Args[0], f.Args[1])
}

// Capability is capability addressing. The hart must implement
// hart.Capabilities. Control always leaves through a direct jump to a
// capability stripped of its flags.
type Capability struct{}

func (Capability) Vector() hart.Vector  { return hart.CapTrapVector }
func (Capability) SetupPMP(h hart.Hart) { setupPMP(h, hart.CapTrapVector) }

func (Capability) Exceptions() uint64 {
	return baseExceptions |
		hart.CauseLoadCapPageFault.Bit() |
		hart.CauseStoreCapPageFault.Bit() |
		hart.CauseCapability.Bit()
}

func (Capability) Enter(h hart.Hart, f *Frame) {
	c, ok := h.(hart.Capabilities)
	if !ok {
		panic("machine: capability mode on a hart without capabilities")
	}
	h.Write(hart.Mstatus, f.Status)
	c.WriteSCR(hart.MScratchC, f.Scratch)
	h.Call(c.SetFlags(f.Entry, 0), f.Args[0], f.Args[1])
}

// setupPMP configures a single NAPOT region covering the whole address
// space. Harts without PMP fault on the first access, which is ignored.
func setupPMP(h hart.Hart, vec hart.Vector) {
	h.Probe(vec, func() {
		h.Write(hart.Pmpaddr0, ^uint64(0))
		h.Write(hart.Pmpcfg0, hart.PMPNAPOT|hart.PMPR|hart.PMPW|hart.PMPX)
	})
}
