package machine

import (
	"github.com/rvboot/bbl/hart"
)

// Frame describes a transfer of control out of the loader.
type Frame struct {
	Prev    hart.Privilege // privilege level the payload runs at
	Status  uint64         // mstatus at the transfer
	Scratch uintptr        // trap frame of the hart, loaded into mscratch
	Entry   uintptr
	Args    [2]uintptr // a0, a1
}

// NewFrame prepares the transfer of hart h to entry at privilege level prev
// with a0 and a1 as arguments.
func (l *Loader) NewFrame(h hart.Hart, prev hart.Privilege, entry, a0, a1 uintptr) Frame {
	id := hart.ID(h)
	status := h.Read(hart.Mstatus)
	status = hart.InsertField(status, hart.MstatusMPP, uint64(prev))
	status = hart.InsertField(status, hart.MstatusMPIE, 0)

	if prev != hart.Machine && l.FLen == 0 {
		// Without an FPU ABI the trap entry saves fcsr in the slot of x0.
		*l.Stacks.FrameSlot(id, 0) = 0
	}

	return Frame{
		Prev:    prev,
		Status:  status,
		Scratch: l.Stacks.Frame(id),
		Entry:   entry,
		Args:    [2]uintptr{a0, a1},
	}
}

// EnterSupervisor drops h to supervisor mode at entry. It does not return.
func (l *Loader) EnterSupervisor(h hart.Hart, entry, a0, a1 uintptr) {
	f := l.NewFrame(h, hart.Supervisor, entry, a0, a1)
	l.enter(h, &f)
}

// EnterMachine jumps to entry, staying in machine mode. It does not return.
func (l *Loader) EnterMachine(h hart.Hart, entry, a0, a1 uintptr) {
	f := l.NewFrame(h, hart.Machine, entry, a0, a1)
	l.enter(h, &f)
}

func (l *Loader) enter(h hart.Hart, f *Frame) {
	l.setState(h, Transitioned)
	l.Mode.Enter(h, f)
}
