// Package machine brings every hart from reset into a consistent machine
// mode state and hands it over to the payload.
//
// The boot hart runs InitFirstHart, every other hart runs InitOtherHart once
// it has been woken. Neither returns.
package machine

import (
	"sync/atomic"

	"github.com/rvboot/bbl/drivers/uart16550"
	"github.com/rvboot/bbl/fdt"
	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/mmio"
	"github.com/rvboot/bbl/platform"
)

// Variant selects the build time flavour of the loader.
type Variant struct {
	Mode Mode

	// FLen is the floating point register width the payload ABI uses: 64,
	// 32 or 0 for soft-float.
	FLen int

	// BootMachine keeps the payload in machine mode. No traps are
	// delegated.
	BootMachine bool

	// SelfTest checks the software interrupt and timer wiring of the boot
	// hart before the payload is entered.
	SelfTest bool
}

// DefaultVariant is the variant selected by build tags.
var DefaultVariant = Variant{
	Mode:        defaultMode,
	FLen:        abiFLen,
	BootMachine: bootMachine,
}

// Discovery describes the platform the loader runs on.
type Discovery interface {
	QueryConsole() *uart16550.UART
	QueryFinisher(c *platform.Config)
	QueryMem(c *platform.Config)
	QueryHarts(c *platform.Config, t *platform.Table)
	QueryCLINT(c *platform.Config, t *platform.Table)
	QueryPLIC(c *platform.Config, t *platform.Table)
	QueryChosen(c *platform.Config)
}

// Payload is the next boot stage.
type Payload interface {
	// Boot is called on the boot hart and BootOther on every other hart,
	// after they are fully initialized. Neither returns.
	Boot(l *Loader, h hart.Hart, dtb uintptr)
	BootOther(l *Loader, h hart.Hart, dtb uintptr)
}

// State is the bring-up progress of a hart.
type State uint32

const (
	Reset State = iota
	WaitingForWake
	CSRInitialized
	TrapsDelegated
	PMPConfigured
	InterruptsReady
	Transitioned
)

var stateNames = [...]string{
	Reset:           "reset",
	WaitingForWake:  "waiting for wake",
	CSRInitialized:  "CSRs initialized",
	TrapsDelegated:  "traps delegated",
	PMPConfigured:   "PMP configured",
	InterruptsReady: "interrupts ready",
	Transitioned:    "transitioned",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Loader holds everything the harts share while they come up.
type Loader struct {
	Variant

	Platform *platform.Config
	Harts    *platform.Table
	Stacks   platform.Stacks
	Mapper   mmio.Mapper

	// Open returns the discovery for the device tree blob at dtb.
	Open    func(dtb uintptr) (Discovery, error)
	Payload Payload

	states [platform.MaxHarts]atomic.Uint32
}

// New returns a loader of variant v that discovers the platform from a
// flattened device tree and finds its devices through m.
func New(v Variant, m mmio.Mapper, stacks platform.Stacks, p Payload) *Loader {
	return &Loader{
		Variant:  v,
		Platform: new(platform.Config),
		Harts:    new(platform.Table),
		Stacks:   stacks,
		Mapper:   m,
		Open: func(dtb uintptr) (Discovery, error) {
			t, err := fdt.Open(dtb, m)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
		Payload: p,
	}
}

// State returns the last state hart id reached.
func (l *Loader) State(id uintptr) State {
	return State(l.states[id].Load())
}

func (l *Loader) setState(h hart.Hart, s State) {
	l.states[hart.ID(h)].Store(uint32(s))
}

// Kernel is a payload at a fixed address. A kernel location passed in
// /chosen takes precedence over Entry.
type Kernel struct {
	Entry     uintptr
	Privilege hart.Privilege // Machine, otherwise Supervisor
}

func (k Kernel) Boot(l *Loader, h hart.Hart, dtb uintptr)      { k.enter(l, h, dtb) }
func (k Kernel) BootOther(l *Loader, h hart.Hart, dtb uintptr) { k.enter(l, h, dtb) }

func (k Kernel) enter(l *Loader, h hart.Hart, dtb uintptr) {
	entry := k.Entry
	if l.Platform.KernelStart != 0 {
		entry = l.Platform.KernelStart
	}
	if k.Privilege == hart.Machine || l.BootMachine {
		l.EnterMachine(h, entry, hart.ID(h), dtb)
	} else {
		l.EnterSupervisor(h, entry, hart.ID(h), dtb)
	}
}
