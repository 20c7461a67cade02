package fdttest

import (
	"unsafe"

	"github.com/rvboot/bbl/hart/sim"
	"github.com/rvboot/bbl/mmio"
)

// DTB is where Place puts the blob, just below the top of a 4 GiB space.
const DTB = 0xff00_0000

// Attach backs the devices of v other than the CLINT, which belongs to the
// sim.Machine, with memory on bus. The UART reports an empty transmitter so
// console output never blocks.
func (v Virt) Attach(bus *sim.Bus) {
	bus.Add(Finisher, 0x1000)
	bus.Add(PLIC, v.PLICSize())
	bus.Add(UART, 0x100)
	mmio.U8At(bus, UART+5).Store(0x60)
}

// Place copies the encoded tree of v onto bus at DTB and returns its address.
func (v Virt) Place(bus *sim.Bus) uintptr {
	blob := Encode(v.Tree())
	bus.Add(DTB, uintptr(len(blob)))
	copy(unsafe.Slice((*byte)(bus.Map(DTB, uintptr(len(blob)))), len(blob)), blob)
	return DTB
}
