// Package finisher drives the SiFive test device, which lets software end
// the simulation or power off the platform.
package finisher

import "github.com/rvboot/bbl/mmio"

const (
	fail  = 0x3333
	pass  = 0x5555
	reset = 0x7777
)

type Finisher struct {
	reg *mmio.U32
}

// New returns the finisher at physical address base, or nil if base is 0 or
// not mapped.
func New(m mmio.Mapper, base uintptr) *Finisher {
	if base == 0 {
		return nil
	}
	reg := mmio.U32At(m, base)
	if reg == nil {
		return nil
	}
	return &Finisher{reg}
}

// Pass powers off, reporting success.
func (f *Finisher) Pass() { f.reg.Store(pass) }

// Fail powers off, reporting code as the exit status.
func (f *Finisher) Fail(code uint16) { f.reg.Store(uint32(code)<<16 | fail) }

// Reset reboots the platform.
func (f *Finisher) Reset() { f.reg.Store(reset) }
