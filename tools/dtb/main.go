// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dtb

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"unsafe"

	"github.com/rvboot/bbl/fdt"
	"github.com/rvboot/bbl/platform"
)

const usageString = `Shows the platform the loader discovers in a device tree blob.

Usage: %s <dtbfile>

`

var flags = flag.NewFlagSet("dtb", flag.ExitOnError)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "dtb")
	flags.PrintDefaults()
}

const pageSize = 0x10000

// Pages backs every physical address with zeroed memory on first use, so
// discovery can map devices that don't exist on the host. A single mapping
// must not cross a 64 KiB boundary.
type Pages struct {
	pages map[uintptr]*[pageSize / 8]uint64
}

func (p *Pages) Map(addr, size uintptr) unsafe.Pointer {
	base := addr &^ (pageSize - 1)
	if size > pageSize || addr+size > base+pageSize {
		return nil
	}
	if p.pages == nil {
		p.pages = make(map[uintptr]*[pageSize / 8]uint64)
	}
	page := p.pages[base]
	if page == nil {
		page = new([pageSize / 8]uint64)
		p.pages[base] = page
	}
	return unsafe.Add(unsafe.Pointer(page), addr-base)
}

// Phys returns the physical address of a register mapped through p.
func (p *Pages) Phys(host uintptr) uintptr {
	for base, page := range p.pages {
		start := uintptr(unsafe.Pointer(page))
		if host >= start && host < start+pageSize {
			return base + host - start
		}
	}
	return 0
}

// Discover runs every platform query of the loader on tree.
func Discover(tree *fdt.Tree) (*platform.Config, *platform.Table, bool) {
	c, t := new(platform.Config), new(platform.Table)
	console := tree.QueryConsole() != nil
	tree.QueryFinisher(c)
	tree.QueryMem(c)
	tree.QueryHarts(c, t)
	tree.QueryCLINT(c, t)
	tree.QueryPLIC(c, t)
	tree.QueryChosen(c)
	return c, t, console
}

// Report prints c and the local state of every present hart. Register
// addresses are translated by phys.
func Report(w io.Writer, c *platform.Config, t *platform.Table, phys func(uintptr) uintptr) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "memory\t%#x-%#x\n", c.MemBase, c.MemBase+c.MemSize)
	fmt.Fprintf(tw, "harts\t%#b (disabled %#b)\n", c.HartMask, c.DisabledHarts)
	fmt.Fprintf(tw, "plic sources\t%d\n", c.PLICSources)
	if c.Mtime != nil {
		fmt.Fprintf(tw, "mtime\t%#x\n", phys(c.Mtime.Addr()))
	}
	if c.Finisher != 0 {
		fmt.Fprintf(tw, "finisher\t%#x\n", c.Finisher)
	}
	if c.KernelStart != 0 {
		fmt.Fprintf(tw, "kernel\t%#x-%#x\n", c.KernelStart, c.KernelEnd)
	}
	tw.Flush()

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "hart\tmsip\tmtimecmp\tM threshold\tS threshold\tS enable words")
	addr := func(r interface{ Addr() uintptr }, ok bool) string {
		if !ok {
			return "-"
		}
		return fmt.Sprintf("%#x", phys(r.Addr()))
	}
	for id := uintptr(0); id < platform.MaxHarts; id++ {
		if c.HartMask>>id&1 == 0 {
			continue
		}
		l := t.Get(id)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", id,
			addr(l.IPI, l.IPI != nil),
			addr(l.Timecmp, l.Timecmp != nil),
			addr(l.MThreshold, l.MThreshold != nil),
			addr(l.SThreshold, l.SThreshold != nil),
			len(l.SIE))
	}
	tw.Flush()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	f, err := os.Open(flags.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	var mem Pages
	tree, err := fdt.Read(f, &mem)
	if err != nil {
		log.Fatalln(err)
	}
	c, t, console := Discover(tree)
	if !console {
		log.Println("warning: no console, fatal errors will be silent")
	}
	Report(os.Stdout, c, t, mem.Phys)
}
