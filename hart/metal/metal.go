//go:build noos && riscv64

// Package metal implements hart.Hart on the hart the code runs on.
package metal

import (
	"github.com/rvboot/bbl/hart"
)

//go:generate go run gen.go

func csrRead(i int) uint64
func csrWrite(i int, v uint64)
func clearFloat()
func mret(a0, a1 uintptr)
func jump(entry, a0, a1 uintptr)
func halt()
func probeVector() uintptr

// probeFaulted is set by the probe trap vector.
var probeFaulted uint32

var index = func() map[hart.CSR]int {
	m := make(map[hart.CSR]int)
	for i, c := range hart.CSRs() {
		m[c] = i
	}
	return m
}()

func lookup(c hart.CSR) int {
	i, ok := index[c]
	if !ok {
		panic("metal: no instruction for csr")
	}
	return i
}

// Hart is the current hart.
type Hart struct{}

func (Hart) Read(c hart.CSR) uint64     { return csrRead(lookup(c)) }
func (Hart) Write(c hart.CSR, v uint64) { csrWrite(lookup(c), v) }

// Probe installs a trap vector that skips the faulting instruction. Only
// the integer trap vector is supported.
func (h Hart) Probe(vec hart.Vector, fn func()) bool {
	if vec != hart.TrapVector {
		panic("metal: capability trap vector not supported")
	}
	saved := h.Read(hart.Mtvec)
	probeFaulted = 0
	h.Write(hart.Mtvec, uint64(probeVector()))
	fn()
	h.Write(hart.Mtvec, saved)
	return probeFaulted != 0
}

func (Hart) ClearFloat()                { clearFloat() }
func (Hart) Return(a0, a1 uintptr)      { mret(a0, a1) }
func (Hart) Call(entry, a0, a1 uintptr) { jump(entry, a0, a1) }
func (Hart) Halt()                      { halt() }
