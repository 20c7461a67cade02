//go:build !noos

package mmio

import (
	"sync/atomic"
	"unsafe"
)

// U32 is a 32-bit register. Loads and stores are atomic, so a store observed
// by another hart orders every write that preceded it.
type U32 struct {
	r uint32
}

func (r *U32) Load() uint32   { return atomic.LoadUint32(&r.r) }
func (r *U32) Store(v uint32) { atomic.StoreUint32(&r.r, v) }
func (r *U32) Addr() uintptr  { return uintptr(unsafe.Pointer(r)) }

// U64 is a 64-bit register, see U32.
type U64 struct {
	r uint64
}

func (r *U64) Load() uint64   { return atomic.LoadUint64(&r.r) }
func (r *U64) Store(v uint64) { atomic.StoreUint64(&r.r, v) }
func (r *U64) Addr() uintptr  { return uintptr(unsafe.Pointer(r)) }

// U8 is an 8-bit register. Byte wide devices are only driven by the boot
// hart, so plain accesses are sufficient.
type U8 struct {
	r uint8
}

func (r *U8) Load() uint8   { return r.r }
func (r *U8) Store(v uint8) { r.r = v }
func (r *U8) Addr() uintptr { return uintptr(unsafe.Pointer(r)) }
