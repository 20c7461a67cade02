// Package plic provides the register layout of the platform level interrupt
// controller and the loader's interrupt setup: every source gets the same
// priority, and harts gate delivery through their enable bits and
// thresholds only.
package plic

import (
	"github.com/rvboot/bbl/mmio"
	"github.com/rvboot/bbl/platform"
)

const (
	MaxSources    = 1024
	priorityBase  = 0x000000
	enableBase    = 0x002000
	enableStride  = 0x80
	contextBase   = 0x200000
	contextStride = 0x1000
)

// Interrupt numbers of the PLIC contexts in interrupts-extended.
const (
	IrqSupervisorExternal = 9
	IrqMachineExternal    = 11
)

// Size returns the size of the register block of a PLIC with n contexts.
func Size(contexts int) uintptr {
	return contextBase + uintptr(contexts)*contextStride
}

// EnableWords returns the number of 32-bit enable words that hold the bits
// of source ids 0 to sources.
func EnableWords(sources int) int {
	return sources/32 + 1
}

type PLIC struct {
	m       mmio.Mapper
	base    uintptr
	sources int
}

func New(m mmio.Mapper, base uintptr, sources int) *PLIC {
	return &PLIC{m, base, min(sources, MaxSources-1)}
}

// Sources returns the number of interrupt sources.
func (p *PLIC) Sources() int { return p.sources }

// Priorities returns the priority registers indexed by source id.
func (p *PLIC) Priorities() []mmio.U32 {
	return mmio.U32Array(p.m, p.base+priorityBase, p.sources+1)
}

// Enable returns the enable bits of context ctx.
func (p *PLIC) Enable(ctx int) []mmio.U32 {
	return mmio.U32Array(p.m, p.base+enableBase+uintptr(ctx)*enableStride, EnableWords(p.sources))
}

// Threshold returns the priority threshold of context ctx.
func (p *PLIC) Threshold(ctx int) *mmio.U32 {
	return mmio.U32At(p.m, p.base+contextBase+uintptr(ctx)*contextStride)
}

// InitPriorities sets the priority of every source of c to 1. It runs once,
// on the boot hart.
func InitPriorities(c *platform.Config) {
	for i := 1; i <= c.PLICSources; i++ {
		c.Priorities[i].Store(1)
	}
}

// InitHart routes all external interrupts of the hart owning l to supervisor
// mode: every source is enabled in its supervisor context, which accepts any
// priority, while the machine context threshold masks everything. Absent
// contexts are skipped.
func InitHart(l *platform.Local) {
	if l.SIE != nil {
		mmio.Fill[*mmio.U32](l.SIE, ^uint32(0))
	}
	if l.MThreshold != nil {
		l.MThreshold.Store(1)
	}
	if l.SThreshold != nil {
		l.SThreshold.Store(0)
	}
}
