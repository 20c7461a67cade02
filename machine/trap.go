package machine

import "github.com/rvboot/bbl/hart"

// Interrupts handled by a supervisor.
const delegatedInterrupts = hart.IntSSIP | hart.IntSTIP | hart.IntSEIP

// delegateTraps routes supervisor interrupts and the exceptions of
// Mode.Exceptions to supervisor mode. A hart that does not accept the
// delegation can't run the payload.
func (l *Loader) delegateTraps(h hart.Hart) {
	if l.BootMachine || !hart.Supports(h, 'S') {
		return
	}
	exceptions := l.Mode.Exceptions()
	h.Write(hart.Mideleg, delegatedInterrupts)
	h.Write(hart.Medeleg, exceptions)
	if h.Read(hart.Mideleg) != delegatedInterrupts {
		l.die(h, "mideleg not accepted")
	}
	if h.Read(hart.Medeleg) != exceptions {
		l.die(h, "medeleg not accepted")
	}
}
