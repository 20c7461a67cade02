package fdt_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rvboot/bbl/fdt"
	"github.com/rvboot/bbl/fdt/fdttest"
	"github.com/rvboot/bbl/hart/sim"
	"github.com/rvboot/bbl/platform"
)

func setup(t *testing.T, v fdttest.Virt) (*fdt.Tree, *sim.Bus) {
	t.Helper()
	bus := new(sim.Bus)
	bus.Add(fdttest.CLINT, sim.ClintSize)
	v.Attach(bus)
	return fdt.New(v.Tree(), bus), bus
}

func discover(tree *fdt.Tree) (*platform.Config, *platform.Table) {
	c, tbl := new(platform.Config), new(platform.Table)
	tree.QueryFinisher(c)
	tree.QueryMem(c)
	tree.QueryHarts(c, tbl)
	tree.QueryCLINT(c, tbl)
	tree.QueryPLIC(c, tbl)
	tree.QueryChosen(c)
	return c, tbl
}

type summary struct {
	MemBase, MemSize    uintptr
	HartMask, Disabled  uint64
	Sources, Priorities int
	Finisher            uintptr
	KernelStart         uintptr
	KernelEnd           uintptr
	Mtime               uintptr
}

func TestQueries(t *testing.T) {
	v := fdttest.Virt{
		Harts: 3, Disabled: 0b100, Sources: 4, MemSize: 0x8030_0000,
		KernelStart: 0x8020_0000, KernelEnd: 0x8040_0000,
	}
	tree, bus := setup(t, v)
	c, tbl := discover(tree)

	got := summary{
		c.MemBase, c.MemSize, c.HartMask, c.DisabledHarts,
		c.PLICSources, len(c.Priorities), c.Finisher,
		c.KernelStart, c.KernelEnd, bus.Phys(c.Mtime.Addr()),
	}
	want := summary{
		MemBase: fdttest.MemBase, MemSize: 0x8030_0000,
		HartMask: 0b111, Disabled: 0b100,
		Sources: 4, Priorities: 5,
		Finisher:    fdttest.Finisher,
		KernelStart: 0x8020_0000, KernelEnd: 0x8040_0000,
		Mtime: fdttest.CLINT + 0xbff8,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("platform mismatch (-want +got):\n%s", diff)
	}

	for id := uintptr(0); id < 3; id++ {
		l := tbl.Get(id)
		if got, want := bus.Phys(l.IPI.Addr()), fdttest.CLINT+4*id; got != want {
			t.Errorf("hart %d: IPI at %#x, want %#x", id, got, want)
		}
		if got, want := bus.Phys(l.Timecmp.Addr()), fdttest.CLINT+0x4000+8*id; got != want {
			t.Errorf("hart %d: timecmp at %#x, want %#x", id, got, want)
		}
		mctx, sctx := 2*id, 2*id+1
		if got, want := bus.Phys(l.MThreshold.Addr()), fdttest.PLIC+0x200000+0x1000*mctx; got != want {
			t.Errorf("hart %d: M threshold at %#x, want %#x", id, got, want)
		}
		if got, want := bus.Phys(l.SIE[0].Addr()), fdttest.PLIC+0x2000+0x80*sctx; got != want {
			t.Errorf("hart %d: S enable at %#x, want %#x", id, got, want)
		}
	}
	if l := tbl.Get(3); l.IPI != nil || l.SIE != nil {
		t.Errorf("hart 3 is not described but has local state %+v", *l)
	}
}

func TestNoSupervisorContext(t *testing.T) {
	v := fdttest.Virt{Harts: 2, Sources: 2, MemSize: 1 << 30, NoSupervisor: true}
	tree, bus := setup(t, v)
	_, tbl := discover(tree)
	for id := uintptr(0); id < 2; id++ {
		l := tbl.Get(id)
		if l.SIE != nil || l.SThreshold != nil {
			t.Errorf("hart %d has a supervisor context", id)
		}
		if got, want := bus.Phys(l.MThreshold.Addr()), fdttest.PLIC+0x200000+0x1000*id; got != want {
			t.Errorf("hart %d: M threshold at %#x, want %#x", id, got, want)
		}
	}
}

func TestChosenAbsent(t *testing.T) {
	tree, _ := setup(t, fdttest.Virt{Harts: 1, MemSize: 1 << 30})
	c := new(platform.Config)
	tree.QueryChosen(c)
	if c.KernelStart != 0 || c.KernelEnd != 0 {
		t.Errorf("kernel range %#x-%#x without /chosen properties", c.KernelStart, c.KernelEnd)
	}
}

func TestConsole(t *testing.T) {
	tree, bus := setup(t, fdttest.Virt{Harts: 1, MemSize: 1 << 30})
	u := tree.QueryConsole()
	if u == nil {
		t.Fatal("no console found")
	}
	u.Write([]byte("x"))
	if got := *(*byte)(bus.Map(fdttest.UART, 1)); got != 'x' {
		t.Errorf("transmit register holds %q", got)
	}
}

func TestOpen(t *testing.T) {
	v := fdttest.Virt{Harts: 2, Sources: 4, MemSize: 0x8030_0000}
	bus := new(sim.Bus)
	bus.Add(fdttest.CLINT, sim.ClintSize)
	v.Attach(bus)
	dtb := v.Place(bus)

	tree, err := fdt.Open(dtb, bus)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := discover(tree)
	if c.HartMask != 0b11 || c.PLICSources != 4 || c.MemSize != 0x8030_0000 {
		t.Errorf("discovered harts %#b, sources %d, memory %#x", c.HartMask, c.PLICSources, c.MemSize)
	}
}

func TestOpenBadMagic(t *testing.T) {
	bus := new(sim.Bus)
	bus.Add(0x1000, 0x100)
	if _, err := fdt.Open(0x1000, bus); err == nil {
		t.Error("Open accepted a blob without magic")
	}
	if _, err := fdt.Open(0x9000, bus); err == nil {
		t.Error("Open accepted an unmapped address")
	}
}

func TestRead(t *testing.T) {
	blob := fdttest.Encode(fdttest.Virt{Harts: 1, MemSize: 1 << 30}.Tree())
	tree, err := fdt.Read(bytes.NewReader(blob), new(sim.Bus))
	if err != nil {
		t.Fatal(err)
	}
	c := new(platform.Config)
	tree.QueryMem(c)
	if c.MemSize != 1<<30 {
		t.Errorf("memory size %#x", c.MemSize)
	}
}
