//go:build noos && riscv64

// Command bbl is the machine mode boot loader. It brings up the hart it
// runs on and enters the payload linked at KernelEntry in supervisor mode.
package main

import (
	"strconv"

	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/hart/metal"
	"github.com/rvboot/bbl/machine"
	"github.com/rvboot/bbl/mmio"
	"github.com/rvboot/bbl/platform"
)

// Set with -ldflags "-X main.DTB=0x... -X main.KernelEntry=0x...".
var (
	DTB         = "0x1020"
	KernelEntry = "0x80200000"
	StackBase   = ""
)

func addr(s string) uintptr {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		panic("bbl: bad address " + s)
	}
	return uintptr(v)
}

func main() {
	stacks := platform.NewStacks()
	if StackBase != "" {
		stacks = platform.StacksAt(addr(StackBase))
	}
	l := machine.New(machine.DefaultVariant, mmio.Identity{}, stacks,
		machine.Kernel{Entry: addr(KernelEntry)})

	h := metal.Hart{}
	l.InitFirstHart(h, hart.ID(h), addr(DTB))
}
