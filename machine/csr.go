package machine

import (
	"github.com/rvboot/bbl/debug"
	"github.com/rvboot/bbl/hart"
)

// initStatus writes mstatus from scratch, enabling only the state of the
// extensions the hart implements, and opens the counters to lower privilege
// levels.
func initStatus(h hart.Hart) {
	var status uint64
	if hart.Supports(h, 'F') {
		status |= hart.MstatusFS
	}
	if hart.Supports(h, 'V') {
		status |= hart.MstatusVS
	}
	h.Write(hart.Mstatus, status)

	if hart.Supports(h, 'S') {
		h.Write(hart.Scounteren, ^uint64(0))
	}
	if hart.Supports(h, 'U') {
		h.Write(hart.Mcounteren, ^uint64(0))
	}

	// Only software interrupts wake a hart parked in wfi.
	h.Write(hart.Mie, hart.IntMSIP)

	if hart.Supports(h, 'S') {
		h.Write(hart.Satp, 0)
	}
}

// initFloat clears the floating point state and narrows misa to what the
// payload ABI can use.
func (l *Loader) initFloat(h hart.Hart) {
	if !hart.Supports(h, 'F') {
		return
	}
	debug.AssertBits(h.Read(hart.Mstatus), hart.MstatusFS, hart.MstatusFS, "mstatus.FS not set")

	switch l.FLen {
	case 64, 32:
		h.ClearFloat()
		h.Write(hart.Fcsr, 0)
		if l.FLen == 32 {
			h.Write(hart.Misa, h.Read(hart.Misa)&^hart.ExtBit('D'))
			debug.Assert(!hart.Supports(h, 'D'), "misa.D still set")
		}
	case 0:
		h.Write(hart.Misa, h.Read(hart.Misa)&^(hart.ExtBit('F')|hart.ExtBit('D')))
		debug.Assert(!hart.Supports(h, 'F'), "misa.F still set")
	}
}

// CounterEvents are the events counted by mhpmcounter3 onwards, encoded
// for SiFive cores: event class in the low byte, event mask above.
var CounterEvents = [...]uint64{
	1<<9 | 0,  // integer load retired
	1<<10 | 0, // integer store retired
	1<<14 | 0, // conditional branch retired
	1<<13 | 1, // branch direction misprediction
	1<<8 | 2,  // instruction cache miss
	1<<9 | 2,  // data cache miss
}

// initCounters programs the hardware performance counters. Many harts have
// fewer counters than events, or none at all, so this runs as a probe.
func (l *Loader) initCounters(h hart.Hart) {
	s := hart.Supports(h, 'S')
	u := hart.Supports(h, 'U')
	faulted := h.Probe(l.Mode.Vector(), func() {
		h.Write(hart.Mcountinhibit, ^uint64(0))
		for i, ev := range CounterEvents {
			h.Write(hart.Mhpmevent(3+i), ev)
			h.Write(hart.Mhpmcounter(3+i), 0)
		}
		if u {
			h.Write(hart.Mcounteren, ^uint64(0))
		}
		if s {
			h.Write(hart.Scounteren, ^uint64(0))
		}
		h.Write(hart.Mcountinhibit, 0)
	})
	if debug.Enabled && faulted {
		l.printm("bbl: hart ", hex(uint64(hart.ID(h))), " lacks some counters\r\n")
	}
}
