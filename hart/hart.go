package hart

import "strconv"

// Hart is a single hardware thread as seen from machine mode.
type Hart interface {
	Read(csr CSR) uint64
	Write(csr CSR, v uint64)

	// Probe runs fn with a temporary trap vector installed in vec. An
	// illegal instruction raised by fn is not fatal: the faulting
	// instruction is skipped and Probe reports that it happened. The
	// previous vector is restored before Probe returns.
	Probe(vec Vector, fn func()) (faulted bool)

	// ClearFloat zeroes f0 to f31. It requires mstatus.FS to be set.
	ClearFloat()

	// Return executes mret with a0 and a1 loaded. It does not return.
	Return(a0, a1 uintptr)

	// Call jumps to entry with a0 and a1 loaded, staying in the current
	// privilege level. It does not return.
	Call(entry, a0, a1 uintptr)

	// Halt stops the hart for good.
	Halt()
}

// Vector selects the register holding the machine trap vector.
type Vector uint8

const (
	TrapVector    Vector = iota // mtvec
	CapTrapVector               // mtcc, capability mode only
)

// SCR is a capability special register number.
type SCR uint8

const (
	PCC       SCR = 0
	DDC       SCR = 1
	MTCC      SCR = 28
	MTDC      SCR = 29
	MScratchC SCR = 30
	MEPCC     SCR = 31
)

// Capabilities is implemented by harts that run in capability addressing
// mode.
type Capabilities interface {
	ReadSCR(scr SCR) uintptr
	WriteSCR(scr SCR, v uintptr)

	// SetFlags returns a copy of the code capability entry with its flags
	// replaced.
	SetFlags(entry uintptr, flags uint64) uintptr
}

// ID returns the id of h as reported by mhartid.
func ID(h Hart) uintptr {
	return uintptr(h.Read(Mhartid))
}

// Fault describes a trap taken in machine mode.
type Fault struct {
	Cause Cause
	Tval  uint64
	EPC   uint64
}

func (f *Fault) Error() string {
	return "trap: cause 0x" + strconv.FormatUint(uint64(f.Cause), 16) +
		" tval 0x" + strconv.FormatUint(f.Tval, 16)
}
