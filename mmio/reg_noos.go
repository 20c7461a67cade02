//go:build noos

package mmio

import "embedded/mmio"

type U32 struct {
	r mmio.U32
}

func (r *U32) Load() uint32   { return r.r.Load() }
func (r *U32) Store(v uint32) { r.r.Store(v) }
func (r *U32) Addr() uintptr  { return r.r.Addr() }

type U64 struct {
	r mmio.U64
}

func (r *U64) Load() uint64   { return r.r.Load() }
func (r *U64) Store(v uint64) { r.r.Store(v) }
func (r *U64) Addr() uintptr  { return r.r.Addr() }

type U8 struct {
	r mmio.U8
}

func (r *U8) Load() uint8   { return r.r.Load() }
func (r *U8) Store(v uint8) { r.r.Store(v) }
func (r *U8) Addr() uintptr { return r.r.Addr() }
