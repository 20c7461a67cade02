// Package fdttest builds device trees of a QEMU virt like platform for tests
// and for the simulator, and encodes them into flattened blobs.
package fdttest

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/rvboot/bbl/drivers/plic"
)

// Device addresses of the virt platform.
const (
	Finisher = 0x0010_0000
	CLINT    = 0x0200_0000
	PLIC     = 0x0c00_0000
	UART     = 0x1000_0000
	MemBase  = 0x8000_0000
)

// Virt describes a platform to build.
type Virt struct {
	Harts    int
	Disabled uint64 // harts marked with status "disabled"
	Sources  int    // PLIC interrupt sources
	MemSize  uint64

	// NoSupervisor omits the supervisor PLIC contexts.
	NoSupervisor bool

	KernelStart, KernelEnd uint64
}

// PLICContexts returns the number of PLIC contexts v describes.
func (v Virt) PLICContexts() int {
	if v.NoSupervisor {
		return v.Harts
	}
	return 2 * v.Harts
}

// PLICSize returns the size of the PLIC register block.
func (v Virt) PLICSize() uintptr { return plic.Size(v.PLICContexts()) }

func u32s(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(b[4*i:], v)
	}
	return b
}

func reg64(base, size uint64) []byte {
	return u32s(uint32(base>>32), uint32(base), uint32(size>>32), uint32(size))
}

func strs(s ...string) []byte {
	return []byte(strings.Join(s, "\x00") + "\x00")
}

func p(name string, v []byte) dt.Property {
	return dt.Property{Name: name, Value: v}
}

func intcPhandle(hart int) uint32 { return uint32(hart + 1) }

// Tree builds the device tree of v.
func (v Virt) Tree() *dt.FDT {
	cpus := &dt.Node{
		Name:       "cpus",
		Properties: []dt.Property{p("#address-cells", u32s(1)), p("#size-cells", u32s(0))},
	}
	var clintIrqs, plicIrqs []uint32
	for i := range v.Harts {
		status := "okay"
		if v.Disabled&(1<<i) != 0 {
			status = "disabled"
		}
		cpus.Children = append(cpus.Children, &dt.Node{
			Name: fmt.Sprintf("cpu@%d", i),
			Properties: []dt.Property{
				p("device_type", strs("cpu")),
				p("reg", u32s(uint32(i))),
				p("status", strs(status)),
				p("compatible", strs("riscv")),
				p("riscv,isa", strs("rv64imafdcsu")),
			},
			Children: []*dt.Node{{
				Name: "interrupt-controller",
				Properties: []dt.Property{
					p("#interrupt-cells", u32s(1)),
					p("interrupt-controller", nil),
					p("compatible", strs("riscv,cpu-intc")),
					p("phandle", u32s(intcPhandle(i))),
				},
			}},
		})
		ph := intcPhandle(i)
		clintIrqs = append(clintIrqs, ph, 3, ph, 7)
		plicIrqs = append(plicIrqs, ph, 11)
		if !v.NoSupervisor {
			plicIrqs = append(plicIrqs, ph, 9)
		}
	}

	soc := &dt.Node{
		Name: "soc",
		Properties: []dt.Property{
			p("#address-cells", u32s(2)), p("#size-cells", u32s(2)),
			p("compatible", strs("simple-bus")), p("ranges", nil),
		},
		Children: []*dt.Node{
			{Name: fmt.Sprintf("test@%x", Finisher), Properties: []dt.Property{
				p("compatible", strs("sifive,test1", "sifive,test0", "syscon")),
				p("reg", reg64(Finisher, 0x1000)),
			}},
			{Name: fmt.Sprintf("clint@%x", CLINT), Properties: []dt.Property{
				p("compatible", strs("sifive,clint0", "riscv,clint0")),
				p("reg", reg64(CLINT, 0x10000)),
				p("interrupts-extended", u32s(clintIrqs...)),
			}},
			{Name: fmt.Sprintf("plic@%x", PLIC), Properties: []dt.Property{
				p("compatible", strs("sifive,plic-1.0.0", "riscv,plic0")),
				p("reg", reg64(PLIC, uint64(v.PLICSize()))),
				p("riscv,ndev", u32s(uint32(v.Sources))),
				p("interrupts-extended", u32s(plicIrqs...)),
			}},
			{Name: fmt.Sprintf("serial@%x", UART), Properties: []dt.Property{
				p("compatible", strs("ns16550a")),
				p("reg", reg64(UART, 0x100)),
				p("clock-frequency", u32s(3686400)),
			}},
		},
	}

	root := &dt.Node{
		Properties: []dt.Property{
			p("#address-cells", u32s(2)), p("#size-cells", u32s(2)),
			p("compatible", strs("riscv-virtio")),
			p("model", strs("riscv-virtio,qemu")),
		},
		Children: []*dt.Node{
			{Name: "chosen"},
			{Name: fmt.Sprintf("memory@%x", MemBase), Properties: []dt.Property{
				p("device_type", strs("memory")),
				p("reg", reg64(MemBase, v.MemSize)),
			}},
			cpus,
			soc,
		},
	}
	chosen := root.Children[0]
	if v.KernelStart != 0 {
		chosen.Properties = append(chosen.Properties,
			p("riscv,kernel-start", u32s(uint32(v.KernelStart>>32), uint32(v.KernelStart))),
			p("riscv,kernel-end", u32s(uint32(v.KernelEnd>>32), uint32(v.KernelEnd))))
	}
	return &dt.FDT{RootNode: root}
}
