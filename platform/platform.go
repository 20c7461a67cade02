// Package platform holds the state the loader shares between harts: the
// platform description written once by the boot hart and the table of per
// hart local state.
package platform

import (
	"io"

	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/mmio"
)

// MaxHarts is the number of hart ids the loader can bring up.
const MaxHarts = 16

// Config describes the platform. The boot hart writes it before it wakes any
// other hart; afterwards other harts only read it.
type Config struct {
	MemBase uintptr
	MemSize uintptr

	PLICSources int        // number of interrupt sources, ids 1 to PLICSources
	Priorities  []mmio.U32 // indexed by source id, entry 0 is reserved

	HartMask      uint64 // harts described by the device tree
	DisabledHarts uint64 // harts that must not be woken
	Mtime         *mmio.U64

	Finisher uintptr   // test finisher, 0 if absent
	Console  io.Writer // early console, nil if absent

	// Payload location passed through /chosen, 0 if absent.
	KernelStart uintptr
	KernelEnd   uintptr
}

// Wakeable returns the harts that are present and not disabled.
func (c *Config) Wakeable() uint64 {
	return c.HartMask &^ c.DisabledHarts
}

// Local is the state of one hart. Only the owning hart writes it after its
// creation, except for the wake latch IPI.
type Local struct {
	IPI     *mmio.U32 // software interrupt latch, write 1 to wake
	Timecmp *mmio.U64

	// PLIC contexts of this hart. A nil slice or pointer means the hart has
	// no such context.
	MIE        []mmio.U32
	SIE        []mmio.U32
	MThreshold *mmio.U32
	SThreshold *mmio.U32
}

// Table holds the local state of every hart, indexed by hart id.
type Table struct {
	harts [MaxHarts]Local
}

// Init zeroes the slot of hart id and returns it.
func (t *Table) Init(id uintptr) *Local {
	l := &t.harts[id]
	*l = Local{}
	return l
}

// Get returns the slot of hart id.
func (t *Table) Get(id uintptr) *Local {
	return &t.harts[id]
}

// Current returns the slot of the hart h, as identified by mhartid.
func (t *Table) Current(h hart.Hart) *Local {
	return &t.harts[hart.ID(h)]
}
