package machine

import (
	"github.com/rvboot/bbl/drivers/plic"
	"github.com/rvboot/bbl/hart"
)

// hartInit brings the CSRs of h into the state every hart shares, in the
// order the later steps depend on.
func (l *Loader) hartInit(h hart.Hart) {
	initStatus(h)
	l.initFloat(h)
	l.initCounters(h)
	l.setState(h, CSRInitialized)

	l.delegateTraps(h)
	l.setState(h, TrapsDelegated)

	l.Mode.SetupPMP(h)
	l.setState(h, PMPConfigured)
}

// InitFirstHart is run by the boot hart. It discovers the platform, wakes
// the other harts and enters the payload. It does not return.
func (l *Loader) InitFirstHart(h hart.Hart, hartid, dtb uintptr) {
	c, t := l.Platform, l.Harts

	d, err := l.Open(dtb)
	if err != nil {
		h.Halt()
		return
	}

	// Console and shutdown device first, so a fatal error is reported
	// from here on.
	if u := d.QueryConsole(); u != nil {
		c.Console = u
	}
	d.QueryFinisher(c)
	l.printm("bbl loader\r\n")

	l.hartInit(h)
	t.Init(hartid)

	d.QueryMem(c)
	d.QueryHarts(c, t)
	d.QueryCLINT(c, t)
	d.QueryPLIC(c, t)
	d.QueryChosen(c)

	// Siblings are parked in the entry stage until their latch is raised.
	for id := range uintptr(len(l.states)) {
		if id != hartid && c.Wakeable()>>id&1 != 0 {
			l.states[id].Store(uint32(WaitingForWake))
		}
	}

	WakeHarts(c, t)

	plic.InitPriorities(c)
	initHartInterrupts(h, t.Get(hartid), c.PLICSources)
	l.setState(h, InterruptsReady)

	if l.SelfTest && !l.selfTest(h) {
		l.die(h, "self test failed")
	}

	c.MemSize = NormalizeMemory(c.MemSize)

	l.Payload.Boot(l, h, dtb)
}

// InitOtherHart is run by every other hart once it has been woken. It only
// reads the state the boot hart published. It does not return.
func (l *Loader) InitOtherHart(h hart.Hart, hartid, dtb uintptr) {
	l.hartInit(h)

	initHartInterrupts(h, l.Harts.Get(hartid), l.Platform.PLICSources)
	l.setState(h, InterruptsReady)

	l.Payload.BootOther(l, h, dtb)
}
