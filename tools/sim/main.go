// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/rvboot/bbl/drivers/uart16550"
	"github.com/rvboot/bbl/fdt/fdttest"
	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/hart/sim"
	"github.com/rvboot/bbl/machine"
	"github.com/rvboot/bbl/platform"
	"github.com/rvboot/bbl/tools/dtb"
)

const usageString = `Boots the loader on simulated harts of a virt like platform.

Usage: %s [flags]

`

var (
	flags = flag.NewFlagSet("sim", flag.ExitOnError)

	harts    = flags.Int("harts", 2, "Number of harts")
	disabled = flags.Uint64("disabled", 0, "Mask of harts marked disabled in the device tree")
	sources  = flags.Int("sources", 32, "Number of PLIC interrupt sources")
	memSize  = flags.Uint64("mem", 128<<20, "Memory size")
	isa      = flags.String("isa", "rv64imafdcsu", "ISA of every hart")
	hpm      = flags.Int("hpm", 4, "Number of programmable performance counters")
	noPMP    = flags.Bool("nopmp", false, "Harts have no physical memory protection")
	cheri    = flags.Bool("cheri", false, "Capability mode")
	flen     = flags.Int("flen", machine.DefaultVariant.FLen, "Float ABI width: 64, 32 or 0")
	bootM    = flags.Bool("machine", false, "Keep the payload in machine mode")
	selfTest = flags.Bool("selftest", false, "Check interrupt wiring of the boot hart")
	kernel   = flags.Uint64("kernel", 0x8020_0000, "Payload entry point")
	dumpDTB  = flags.String("dtb", "", "Write the device tree blob to file")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "sim")
	flags.PrintDefaults()
}

// hostConsole hides the UART from the loader, so it keeps printing to the
// console it was given.
type hostConsole struct{ machine.Discovery }

func (hostConsole) QueryConsole() *uart16550.UART { return nil }

// Options describe a simulation run.
type Options struct {
	Virt    fdttest.Virt
	Hart    sim.Config
	Variant machine.Variant
	Kernel  uintptr
}

// Run boots the loader as described by o, printing the console of the
// loader and a summary of every hart to w.
func Run(ctx context.Context, w io.Writer, o Options) error {
	if o.Virt.Harts < 1 || o.Virt.Harts > platform.MaxHarts {
		return fmt.Errorf("sim: %d harts, want 1 to %d", o.Virt.Harts, platform.MaxHarts)
	}
	m := sim.NewMachine(o.Virt.Harts, fdttest.CLINT, o.Hart)
	o.Virt.Attach(m.Bus)
	blob := o.Virt.Place(m.Bus)

	l := machine.New(o.Variant, m.Bus, platform.NewStacks(), machine.Kernel{Entry: o.Kernel})
	open := l.Open
	l.Open = func(addr uintptr) (machine.Discovery, error) {
		d, err := open(addr)
		if err != nil {
			return nil, err
		}
		return hostConsole{d}, nil
	}
	l.Platform.Console = w

	results, err := m.Boot(ctx, 0,
		func(h *sim.Hart) { l.InitFirstHart(h, 0, blob) },
		func(h *sim.Hart) { l.InitOtherHart(h, hart.ID(h), blob) },
	)
	if err != nil {
		return err
	}

	for id, r := range results {
		var f *hart.Fault
		if errors.As(r.Err, &f) {
			h := m.Harts[id]
			h.Run(func() { l.Exception(h) })
		}
	}

	fmt.Fprintln(w)
	dtb.Report(w, l.Platform, l.Harts, m.Bus.Phys)
	fmt.Fprintln(w)
	summary(w, l, m, results)

	for id, r := range results {
		if r.Err != nil {
			return fmt.Errorf("sim: hart %d: %w", id, r.Err)
		}
	}
	return nil
}

func summary(w io.Writer, l *machine.Loader, m *sim.Machine, results []sim.Result) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "hart\tstate\tvia\tentry\ta0\ta1\tMPP\tscratch")
	for id, h := range m.Harts {
		state := l.State(uintptr(id))
		tr := h.Transition
		if tr == nil {
			fmt.Fprintf(tw, "%d\t%v\t-\t-\t-\t-\t-\t-\n", id, state)
			continue
		}
		via := "call"
		if tr.Mret {
			via = "mret"
		}
		fmt.Fprintf(tw, "%d\t%v\t%s\t%#x\t%#x\t%#x\t%d\t%#x\n", id, state, via,
			tr.Entry, tr.Args[0], tr.Args[1],
			hart.ExtractField(tr.Status, hart.MstatusMPP), tr.Scratch)
	}
	tw.Flush()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 0 {
		flags.Usage()
		os.Exit(1)
	}

	misa, err := hart.ParseISA(*isa)
	if err != nil {
		log.Fatalln(err)
	}
	variant := machine.DefaultVariant
	if *cheri {
		variant.Mode = machine.Capability{}
	}
	variant.FLen = *flen
	variant.BootMachine = *bootM
	variant.SelfTest = *selfTest

	o := Options{
		Virt: fdttest.Virt{
			Harts:    *harts,
			Disabled: *disabled,
			Sources:  *sources,
			MemSize:  *memSize,
		},
		Hart:    sim.Config{ISA: misa, PMP: !*noPMP, HPM: *hpm, Cheri: *cheri},
		Variant: variant,
		Kernel:  uintptr(*kernel),
	}

	if *dumpDTB != "" {
		err := os.WriteFile(*dumpDTB, fdttest.Encode(o.Virt.Tree()), 0o644)
		if err != nil {
			log.Fatalln(err)
		}
	}

	if err := Run(context.Background(), os.Stdout, o); err != nil {
		log.Fatalln(err)
	}
}
