package fdt

import (
	"github.com/u-root/u-root/pkg/dt"

	"github.com/rvboot/bbl/drivers/clint"
	"github.com/rvboot/bbl/drivers/plic"
	"github.com/rvboot/bbl/drivers/uart16550"
	"github.com/rvboot/bbl/platform"
)

// QueryConsole returns the first ns16550a UART, initialised for
// uart16550.DefaultBaud, or nil if there is none.
func (t *Tree) QueryConsole() *uart16550.UART {
	for _, n := range find(t.root, isCompatible("ns16550a", "ns16550")) {
		regs := t.reg(n)
		if len(regs) == 0 {
			continue
		}
		shift, _ := u32(n, "reg-shift")
		u := uart16550.New(t.m, uintptr(regs[0].Base), uint(shift))
		if u == nil {
			continue
		}
		clock, _ := u32(n, "clock-frequency")
		u.Init(clock, uart16550.DefaultBaud)
		return u
	}
	return nil
}

// QueryFinisher records the address of the test finisher.
func (t *Tree) QueryFinisher(c *platform.Config) {
	for _, n := range find(t.root, isCompatible("sifive,test1", "sifive,test0")) {
		if regs := t.reg(n); len(regs) > 0 {
			c.Finisher = uintptr(regs[0].Base)
			return
		}
	}
}

// QueryMem records the lowest memory region.
func (t *Tree) QueryMem(c *platform.Config) {
	found := false
	for _, n := range find(t.root, deviceType("memory")) {
		for _, r := range t.reg(n) {
			if r.Size == 0 || found && uintptr(r.Base) >= c.MemBase {
				continue
			}
			c.MemBase, c.MemSize = uintptr(r.Base), uintptr(r.Size)
			found = true
		}
	}
}

// QueryHarts records the present and disabled harts and creates their local
// state. Harts with ids of MaxHarts or above are ignored.
func (t *Tree) QueryHarts(c *platform.Config, tbl *platform.Table) {
	for _, n := range find(t.root, deviceType("cpu")) {
		regs := t.reg(n)
		if len(regs) == 0 || regs[0].Base >= platform.MaxHarts {
			continue
		}
		id := uintptr(regs[0].Base)
		for _, ic := range n.Children {
			if _, ok := prop(ic, "interrupt-controller"); !ok {
				continue
			}
			if ph, ok := u32(ic, "phandle"); ok {
				t.intc[ph] = id
			} else if ph, ok := u32(ic, "linux,phandle"); ok {
				t.intc[ph] = id
			}
		}
		c.HartMask |= 1 << id
		if s, ok := str(n, "status"); ok && s != "okay" && s != "ok" {
			c.DisabledHarts |= 1 << id
		}
		tbl.Init(id)
	}
}

// hartOf resolves the interrupt controller phandle of a hart. Harts that were
// not recorded by QueryHarts are not found.
func (t *Tree) hartOf(c *platform.Config, phandle uint32) (uintptr, bool) {
	id, ok := t.intc[phandle]
	if !ok || c.HartMask&(1<<id) == 0 {
		return 0, false
	}
	return id, true
}

// QueryCLINT wires every hart's software interrupt latch and timer compare
// register and records the shared timer. It must follow QueryHarts.
func (t *Tree) QueryCLINT(c *platform.Config, tbl *platform.Table) {
	for _, n := range find(t.root, isCompatible("riscv,clint0", "sifive,clint0")) {
		regs := t.reg(n)
		if len(regs) == 0 {
			continue
		}
		dev := clint.New(t.m, uintptr(regs[0].Base))
		if dev == nil {
			continue
		}
		c.Mtime = dev.Mtime()
		for i, irq := range interrupts(n) {
			id, ok := t.hartOf(c, irq[0])
			if !ok {
				continue
			}
			l := tbl.Get(id)
			switch irq[1] {
			case clint.IrqMachineSoftware:
				l.IPI = dev.IPI(i / 2)
			case clint.IrqMachineTimer:
				l.Timecmp = dev.Timecmp(i / 2)
			}
		}
		return
	}
}

// QueryPLIC records the interrupt sources and wires the machine and
// supervisor contexts of every hart. It must follow QueryHarts.
func (t *Tree) QueryPLIC(c *platform.Config, tbl *platform.Table) {
	for _, n := range find(t.root, isCompatible("riscv,plic0", "sifive,plic-1.0.0")) {
		regs := t.reg(n)
		ndev, ok := u32(n, "riscv,ndev")
		if len(regs) == 0 || !ok {
			continue
		}
		dev := plic.New(t.m, uintptr(regs[0].Base), int(ndev))
		prio := dev.Priorities()
		if prio == nil {
			continue
		}
		c.PLICSources = dev.Sources()
		c.Priorities = prio
		for ctx, irq := range interrupts(n) {
			id, ok := t.hartOf(c, irq[0])
			if !ok {
				continue
			}
			l := tbl.Get(id)
			switch irq[1] {
			case plic.IrqMachineExternal:
				l.MIE, l.MThreshold = dev.Enable(ctx), dev.Threshold(ctx)
			case plic.IrqSupervisorExternal:
				l.SIE, l.SThreshold = dev.Enable(ctx), dev.Threshold(ctx)
			}
		}
		return
	}
}

// QueryChosen records the payload range from riscv,kernel-start and
// riscv,kernel-end, given in one or two cells.
func (t *Tree) QueryChosen(c *platform.Config) {
	var chosen *dt.Node
	for _, n := range t.root.Children {
		if n.Name == "chosen" {
			chosen = n
		}
	}
	if chosen == nil {
		return
	}
	read := func(name string) uintptr {
		v, ok := prop(chosen, name)
		if !ok || len(v) < 4 {
			return 0
		}
		cl := cells(v)
		return uintptr(number(cl, min(len(cl), 2)))
	}
	c.KernelStart = read("riscv,kernel-start")
	c.KernelEnd = read("riscv,kernel-end")
}
