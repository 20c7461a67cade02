package mmio_test

import (
	"testing"
	"unsafe"

	"github.com/rvboot/bbl/mmio"
)

// Globals don't move, unlike stack variables.
var mem [4]uint32

func TestIdentity(t *testing.T) {
	base := uintptr(unsafe.Pointer(&mem))

	regs := mmio.U32Array(mmio.Identity{}, base, len(mem))
	mmio.Fill[*mmio.U32](regs[1:3], 0xffff_ffff)

	want := [4]uint32{0, 0xffff_ffff, 0xffff_ffff, 0}
	if mem != want {
		t.Errorf("memory = %#x, want %#x", mem, want)
	}

	r := mmio.U32At(mmio.Identity{}, base+12)
	r.Store(7)
	if mem[3] != 7 || r.Load() != 7 {
		t.Errorf("store through U32At: mem %d, load %d", mem[3], r.Load())
	}
	if r.Addr() != base+12 {
		t.Errorf("Addr() = %#x, want %#x", r.Addr(), base+12)
	}
}

type nothing struct{}

func (nothing) Map(addr, size uintptr) unsafe.Pointer { return nil }

func TestUnmapped(t *testing.T) {
	if regs := mmio.U32Array(nothing{}, 0x1000, 4); regs != nil {
		t.Errorf("U32Array on unmapped range = %v, want nil", regs)
	}
}
