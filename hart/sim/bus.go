package sim

import (
	"sort"
	"unsafe"
)

type region struct {
	base uintptr
	mem  []uint64
}

func (r *region) size() uintptr { return uintptr(len(r.mem)) * 8 }

// Bus is simulated physical memory made of disjoint regions. Regions are
// added before any hart runs and never removed, so mapping is safe for
// concurrent use afterwards.
type Bus struct {
	regions []*region
}

// Add backs size bytes at base with zeroed memory.
func (b *Bus) Add(base, size uintptr) {
	r := &region{base: base, mem: make([]uint64, (size+7)/8)}
	b.regions = append(b.regions, r)
	sort.Slice(b.regions, func(i, j int) bool {
		return b.regions[i].base < b.regions[j].base
	})
}

// Map implements mmio.Mapper. The range [addr, addr+size) must lie within a
// single region and addr must be aligned to the smaller of size and 8.
func (b *Bus) Map(addr, size uintptr) unsafe.Pointer {
	i := sort.Search(len(b.regions), func(i int) bool {
		r := b.regions[i]
		return r.base+r.size() > addr
	})
	if i == len(b.regions) {
		return nil
	}
	r := b.regions[i]
	if addr < r.base || addr+size > r.base+r.size() {
		return nil
	}
	if addr&(min(size, 8)-1) != 0 {
		return nil
	}
	off := addr - r.base
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(r.mem)), off)
}

// Phys returns the bus address of host address p, as returned by the Addr
// method of a register mapped through b, or 0 if p lies outside every
// region.
func (b *Bus) Phys(p uintptr) uintptr {
	for _, r := range b.regions {
		start := uintptr(unsafe.Pointer(unsafe.SliceData(r.mem)))
		if p >= start && p < start+r.size() {
			return r.base + (p - start)
		}
	}
	return 0
}
