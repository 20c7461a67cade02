package mmio

import "unsafe"

type Register32[T any] interface {
	*T
	Load() uint32
	Store(uint32)
}

// Mapper translates the physical address of a register block of size bytes
// into a pointer. It returns nil if nothing is mapped at addr.
type Mapper interface {
	Map(addr, size uintptr) unsafe.Pointer
}

// Identity maps every physical address onto itself. It is the only mapping
// available before paging is enabled.
type Identity struct{}

//go:nosplit
func (Identity) Map(addr, size uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

// U32At returns the 32-bit register at physical address addr.
func U32At(m Mapper, addr uintptr) *U32 {
	return (*U32)(m.Map(addr, 4))
}

// U64At returns the 64-bit register at physical address addr.
func U64At(m Mapper, addr uintptr) *U64 {
	return (*U64)(m.Map(addr, 8))
}

// U32Array returns n consecutive 32-bit registers starting at addr.
func U32Array(m Mapper, addr uintptr, n int) []U32 {
	p := m.Map(addr, uintptr(n)*4)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*U32)(p), n)
}

// Fill stores v to every register of regs.
func Fill[T Register32[Q], Q any](regs []Q, v uint32) {
	for i := range regs {
		T(&regs[i]).Store(v)
	}
}

// U8At returns the byte register at physical address addr.
func U8At(m Mapper, addr uintptr) *U8 {
	return (*U8)(m.Map(addr, 1))
}
