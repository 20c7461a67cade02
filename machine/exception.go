package machine

import "github.com/rvboot/bbl/hart"

var excNames = [32]string{
	0x0:  "Instruction address misaligned",
	0x1:  "Instruction access fault",
	0x2:  "Illegal instruction",
	0x3:  "Breakpoint",
	0x4:  "Load address misaligned",
	0x5:  "Load access fault",
	0x6:  "Store address misaligned",
	0x7:  "Store access fault",
	0x8:  "Environment call from U-mode",
	0x9:  "Environment call from S-mode",
	0xb:  "Environment call from M-mode",
	0xc:  "Instruction page fault",
	0xd:  "Load page fault",
	0xf:  "Store page fault",
	0x1a: "Load capability page fault",
	0x1b: "Store capability page fault",
	0x1c: "Capability fault",
}

// CauseName returns a description of the exception code c.
func CauseName(c hart.Cause) string {
	if c < hart.Cause(len(excNames)) && excNames[c] != "" {
		return excNames[c]
	}
	return "Unknown"
}

// Exception reports a trap machine mode did not expect and dies. It is
// called by the trap vector.
func (l *Loader) Exception(h hart.Hart) {
	cause := h.Read(hart.Mcause)
	name := "Interrupt"
	if int64(cause) >= 0 {
		name = CauseName(hart.Cause(cause))
	}
	l.printm("Unhandled ", name, " Exception")
	l.printm("\r\nhart     0x", hex(uint64(hart.ID(h))))
	l.printm("\r\ncause    0x", hex(cause))
	l.printm("\r\nepc      0x", hex(h.Read(hart.Mepc)))
	l.printm("\r\ntval     0x", hex(h.Read(hart.Mtval)))
	l.printm("\r\nstatus   0x", hex(h.Read(hart.Mstatus)))
	l.printm("\r\n")
	l.die(h, "unhandled trap")
}
