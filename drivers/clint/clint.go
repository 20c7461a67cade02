// Package clint provides the register layout of the core local interruptor,
// which holds the per hart software interrupt latches and timer compare
// registers next to the shared free running timer.
package clint

import (
	"github.com/rvboot/bbl/mmio"
)

const Size = 0x10000

// Interrupt numbers of the CLINT lines in interrupts-extended.
const (
	IrqMachineSoftware = 3
	IrqMachineTimer    = 7
)

type registers struct {
	msip     [4096]mmio.U32
	mtimecmp [4095]mmio.U64
	mtime    mmio.U64
}

type CLINT struct {
	regs *registers
}

// New returns the CLINT at physical address base, or nil if base is not
// mapped.
func New(m mmio.Mapper, base uintptr) *CLINT {
	regs := (*registers)(m.Map(base, Size))
	if regs == nil {
		return nil
	}
	return &CLINT{regs}
}

// IPI returns the software interrupt latch of context i.
func (c *CLINT) IPI(i int) *mmio.U32 { return &c.regs.msip[i] }

// Timecmp returns the timer compare register of context i.
func (c *CLINT) Timecmp(i int) *mmio.U64 { return &c.regs.mtimecmp[i] }

// Mtime returns the free running timer.
func (c *CLINT) Mtime() *mmio.U64 { return &c.regs.mtime }
