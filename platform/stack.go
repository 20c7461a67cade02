package platform

import "unsafe"

// Each hart owns a machine mode stack. The top of the stack is reserved for
// a single trap frame, the area that mscratch points to while a lower
// privilege level runs.
const (
	StackSize = 4096
	FrameSize = 36 * 8 // x0-x31, mstatus, mepc, mcause, mtval
)

type Stack [StackSize]byte

// Stacks are the machine mode stacks of all harts, laid out consecutively
// starting with hart 0.
type Stacks struct {
	base unsafe.Pointer
}

// StacksAt returns the stacks placed at physical address base by the
// linker script.
func StacksAt(base uintptr) Stacks {
	return Stacks{base: unsafe.Pointer(base)}
}

// NewStacks allocates stacks for MaxHarts harts.
func NewStacks() Stacks {
	return Stacks{base: unsafe.Pointer(new([MaxHarts]Stack))}
}

// Top returns the end address of the stack of hart id.
func (s Stacks) Top(id uintptr) uintptr {
	return uintptr(s.base) + (id+1)*StackSize
}

// Frame returns the address of the trap frame reserved for hart id.
func (s Stacks) Frame(id uintptr) uintptr {
	return s.Top(id) - FrameSize
}

// FrameSlot returns slot i of the trap frame of hart id. Slot 0 belongs to
// x0 and is free for other use.
func (s Stacks) FrameSlot(id uintptr, i int) *uint64 {
	off := (id+1)*StackSize - FrameSize + uintptr(i)*8
	return (*uint64)(unsafe.Add(s.base, off))
}
