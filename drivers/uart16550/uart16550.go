// Package uart16550 is a polled driver for ns16550a compatible UARTs, enough
// to serve as the loader's early console.
package uart16550

import (
	"github.com/rvboot/bbl/mmio"
)

// Register indexes, scaled by the register shift.
const (
	rbr = 0 // receive buffer (read), transmit holding (write), divisor low (DLAB)
	ier = 1 // interrupt enable, divisor high (DLAB)
	fcr = 2 // FIFO control (write)
	lcr = 3 // line control
	mcr = 4 // modem control
	lsr = 5 // line status
)

const (
	lcrDLAB = 0x80
	lcr8N1  = 0x03
	fcrInit = 0xc7 // enable and clear FIFOs, 14 byte trigger
	lsrTHRE = 0x20
	lsrDR   = 0x01
)

const DefaultBaud = 115200

type UART struct {
	regs  [6]*mmio.U8
	shift uint
}

// New returns the UART at physical address base with registers spaced
// 1<<shift bytes apart, or nil if base is not mapped.
func New(m mmio.Mapper, base uintptr, shift uint) *UART {
	u := &UART{shift: shift}
	for i := range u.regs {
		u.regs[i] = mmio.U8At(m, base+uintptr(i)<<shift)
		if u.regs[i] == nil {
			return nil
		}
	}
	return u
}

// Init programs 8N1 at baud for an input clock of clock Hz. A zero clock
// leaves the divisor as the firmware set it.
func (u *UART) Init(clock, baud uint32) {
	u.regs[ier].Store(0)
	if clock != 0 && baud != 0 {
		div := clock / (16 * baud)
		u.regs[lcr].Store(lcrDLAB)
		u.regs[rbr].Store(uint8(div))
		u.regs[ier].Store(uint8(div >> 8))
	}
	u.regs[lcr].Store(lcr8N1)
	u.regs[fcr].Store(fcrInit)
	u.regs[mcr].Store(0)
}

// WriteByte blocks until the transmitter accepts c.
//
//go:nosplit
func (u *UART) WriteByte(c byte) error {
	for u.regs[lsr].Load()&lsrTHRE == 0 {
		// wait
	}
	u.regs[rbr].Store(c)
	return nil
}

// Write never fails; it returns once every byte of p was handed to the
// transmitter.
//
//go:nosplit
func (u *UART) Write(p []byte) (int, error) {
	for _, c := range p {
		u.WriteByte(c)
	}
	return len(p), nil
}

// Poll returns the next received byte, or false if none is waiting.
func (u *UART) Poll() (byte, bool) {
	if u.regs[lsr].Load()&lsrDR == 0 {
		return 0, false
	}
	return u.regs[rbr].Load(), true
}
