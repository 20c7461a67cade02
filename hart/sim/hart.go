package sim

import (
	"errors"
	"fmt"

	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/mmio"
)

// ProbeVector is the value a probing trap vector reads back as.
const ProbeVector = 0x8000_0f00

// Config describes the hardware a Hart models.
type Config struct {
	ID    uintptr
	ISA   uint64 // misa, including MXL
	PMP   bool   // pmpcfg0 and pmpaddr0 are implemented
	HPM   int    // number of implemented mhpmcounters, starting at 3
	Cheri bool   // capability addressing mode

	// Interrupt lines wired from the CLINT. Nil lines are never pending.
	IPI     *mmio.U32
	Timecmp *mmio.U64
	Mtime   *mmio.U64
}

// Write records a CSR write as issued, before WARL masking.
type Write struct {
	CSR   hart.CSR
	Value uint64
}

// Transition records how a hart left the loader.
type Transition struct {
	Mret    bool // mret, otherwise a direct call
	Entry   uintptr
	Args    [2]uintptr
	Status  uint64 // mstatus at the time of the transfer
	Scratch uint64 // mscratch, or the MScratchC capability in capability mode
	Flags   uint64 // capability flags of Entry

	// Restricted is set if Entry was derived through SetFlags.
	Restricted bool
}

var ErrHalted = errors.New("sim: hart halted")

type transitioned struct{}
type halted struct{}

// Hart is a simulated hart. It must only be used by one goroutine at a time.
type Hart struct {
	cfg Config
	csr map[hart.CSR]uint64
	f   [32]uint64
	scr [32]uintptr

	flags   map[uintptr]uint64
	probing int
	faulted bool

	Writes     []Write
	Absorbed   []hart.Fault // illegal instructions swallowed by Probe
	Transition *Transition
}

func New(cfg Config) *Hart {
	h := &Hart{
		cfg:   cfg,
		csr:   make(map[hart.CSR]uint64),
		flags: make(map[uintptr]uint64),
	}
	h.Reset()
	return h
}

// Reset puts the hart into its reset state. Floating point registers hold a
// non-zero pattern so that clearing them is observable.
func (h *Hart) Reset() {
	clear(h.csr)
	clear(h.scr[:])
	h.csr[hart.Misa] = h.cfg.ISA
	h.csr[hart.Mhartid] = uint64(h.cfg.ID)
	h.csr[hart.Mstatus] = uint64(hart.Machine) << 11
	for i := range h.f {
		h.f[i] = 0xdead_beef_0000_0000 | uint64(i)
	}
	h.Writes = nil
	h.Absorbed = nil
	h.Transition = nil
}

func (h *Hart) Config() Config { return h.cfg }

func (h *Hart) has(ext byte) bool { return h.cfg.ISA&hart.ExtBit(ext) != 0 }

// CSRs returns a copy of the implemented CSRs and their current values.
func (h *Hart) CSRs() map[hart.CSR]uint64 {
	m := make(map[hart.CSR]uint64, len(h.csr))
	for k := range h.csr {
		if h.implemented(k) {
			m[k] = h.load(k)
		}
	}
	return m
}

// Float returns floating point register i.
func (h *Hart) Float(i int) uint64 { return h.f[i] }

// Wrote reports whether csr was ever written.
func (h *Hart) Wrote(csr hart.CSR) bool {
	for _, w := range h.Writes {
		if w.CSR == csr {
			return true
		}
	}
	return false
}

func (h *Hart) illegal(tval uint64) {
	f := hart.Fault{Cause: hart.CauseIllegalInsn, Tval: tval}
	if h.probing > 0 {
		h.faulted = true
		h.Absorbed = append(h.Absorbed, f)
		return
	}
	// Taken like a real trap, so the handler finds the cause in the CSRs.
	h.csr[hart.Mcause] = uint64(f.Cause)
	h.csr[hart.Mtval] = f.Tval
	panic(&f)
}

func (h *Hart) Read(csr hart.CSR) uint64 {
	if !h.implemented(csr) {
		h.illegal(uint64(csr))
		return 0
	}
	return h.load(csr)
}

func (h *Hart) Write(csr hart.CSR, v uint64) {
	h.Writes = append(h.Writes, Write{csr, v})
	if !h.implemented(csr) || csr.ReadOnly() {
		h.illegal(uint64(csr))
		return
	}
	h.store(csr, v)
}

func (h *Hart) Probe(vec hart.Vector, fn func()) bool {
	var saved uintptr
	switch vec {
	case hart.TrapVector:
		saved = uintptr(h.csr[hart.Mtvec])
		h.csr[hart.Mtvec] = ProbeVector
	case hart.CapTrapVector:
		if !h.cfg.Cheri {
			h.illegal(uint64(hart.MTCC))
			return false
		}
		saved = h.scr[hart.MTCC]
		h.scr[hart.MTCC] = ProbeVector
	}
	outer := h.faulted
	h.faulted = false
	h.probing++
	defer func() {
		h.probing--
		switch vec {
		case hart.TrapVector:
			h.csr[hart.Mtvec] = uint64(saved)
		case hart.CapTrapVector:
			h.scr[hart.MTCC] = saved
		}
		h.faulted = outer || h.faulted
	}()
	fn()
	return h.faulted
}

func (h *Hart) ClearFloat() {
	if !h.has('F') || h.csr[hart.Mstatus]&hart.MstatusFS == 0 {
		h.illegal(0xf000_0053) // fmv.w.x f0, zero
		return
	}
	clear(h.f[:])
	h.csr[hart.Mstatus] |= hart.MstatusFS
}

func (h *Hart) Return(a0, a1 uintptr) {
	h.Transition = &Transition{
		Mret:    true,
		Entry:   uintptr(h.csr[hart.Mepc]),
		Args:    [2]uintptr{a0, a1},
		Status:  h.load(hart.Mstatus),
		Scratch: h.csr[hart.Mscratch],
	}
	panic(transitioned{})
}

func (h *Hart) Call(entry, a0, a1 uintptr) {
	t := &Transition{
		Entry:   entry,
		Args:    [2]uintptr{a0, a1},
		Status:  h.load(hart.Mstatus),
		Scratch: h.csr[hart.Mscratch],
	}
	t.Flags, t.Restricted = h.flags[entry]
	if h.cfg.Cheri {
		t.Scratch = uint64(h.scr[hart.MScratchC])
	}
	h.Transition = t
	panic(transitioned{})
}

func (h *Hart) Halt() {
	panic(halted{})
}

func (h *Hart) ReadSCR(scr hart.SCR) uintptr {
	if !h.cfg.Cheri || int(scr) >= len(h.scr) {
		h.illegal(uint64(scr))
		return 0
	}
	return h.scr[scr]
}

func (h *Hart) WriteSCR(scr hart.SCR, v uintptr) {
	if !h.cfg.Cheri || int(scr) >= len(h.scr) {
		h.illegal(uint64(scr))
		return
	}
	h.scr[scr] = v
}

func (h *Hart) SetFlags(entry uintptr, flags uint64) uintptr {
	if !h.cfg.Cheri {
		h.illegal(0)
		return entry
	}
	h.flags[entry] = flags
	return entry
}

// Run calls fn, which is expected to end in a control transfer out of the
// loader. It returns nil if it did, ErrHalted if the hart halted and the
// fault if an unhandled trap was raised.
func (h *Hart) Run(fn func()) (err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case transitioned:
			err = nil
		case halted:
			err = ErrHalted
		case *hart.Fault:
			err = r
		default:
			panic(r)
		}
	}()
	fn()
	return fmt.Errorf("sim: hart %d returned from loader", h.cfg.ID)
}
