package machine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rvboot/bbl/drivers/plic"
	"github.com/rvboot/bbl/fdt/fdttest"
	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/hart/sim"
	"github.com/rvboot/bbl/mmio"
	"github.com/rvboot/bbl/platform"
)

func isa(t *testing.T, s string) uint64 {
	t.Helper()
	misa, err := hart.ParseISA(s)
	if err != nil {
		t.Fatal(err)
	}
	return misa
}

func newLoader(v Variant) *Loader {
	bus := new(sim.Bus)
	bus.Add(fdttest.Finisher, 0x1000)
	return &Loader{
		Variant:  v,
		Platform: new(platform.Config),
		Harts:    new(platform.Table),
		Stacks:   platform.NewStacks(),
		Mapper:   bus,
	}
}

var standard = Variant{Mode: Standard{}, FLen: 64}

func TestFeatureSubsets(t *testing.T) {
	exts := "FVSU"
	for set := range 1 << len(exts) {
		for _, cheri := range []bool{false, true} {
			misa := isa(t, "rv64ima")
			for i := range len(exts) {
				if set>>i&1 != 0 {
					misa |= hart.ExtBit(exts[i])
				}
			}
			has := func(ext byte) bool { return misa&hart.ExtBit(ext) != 0 }

			v := standard
			if cheri {
				v.Mode = Capability{}
			}
			l := newLoader(v)
			h := sim.New(sim.Config{ISA: misa, PMP: true, HPM: 2, Cheri: cheri})
			l.hartInit(h)

			name := hart.ISAString(misa)
			if cheri {
				name += " cheri"
			}
			status := h.Read(hart.Mstatus)
			if got := status&hart.MstatusFS != 0; got != has('F') {
				t.Errorf("%s: mstatus.FS set = %v", name, got)
			}
			if got := status&hart.MstatusVS != 0; got != has('V') {
				t.Errorf("%s: mstatus.VS set = %v", name, got)
			}
			if !has('S') {
				for _, csr := range []hart.CSR{hart.Mideleg, hart.Medeleg, hart.Satp, hart.Scounteren} {
					if h.Wrote(csr) {
						t.Errorf("%s: %#x written without S", name, csr)
					}
				}
			}
			if !has('U') && h.Wrote(hart.Mcounteren) {
				t.Errorf("%s: mcounteren written without U", name)
			}
			if got := h.Read(hart.Mie); got != hart.IntMSIP {
				t.Errorf("%s: mie = %#x", name, got)
			}
			if s := l.State(0); s != PMPConfigured {
				t.Errorf("%s: state %v", name, s)
			}
		}
	}
}

func TestInitFloat(t *testing.T) {
	for _, tc := range []struct {
		flen    int
		misa    string
		cleared bool
	}{
		{64, "rv64imafd", true},
		{32, "rv64imaf", true},
		{0, "rv64ima", false},
	} {
		l := newLoader(Variant{Mode: Standard{}, FLen: tc.flen})
		h := sim.New(sim.Config{ISA: isa(t, "rv64imafdc")})
		h.Write(hart.Mstatus, hart.MstatusFS)
		h.Write(hart.Fcsr, 0x1f)
		initStatus(h)
		l.initFloat(h)

		want := isa(t, tc.misa) | hart.ExtBit('C')
		if got := h.Read(hart.Misa); got != want {
			t.Errorf("flen %d: misa = %s, want %s", tc.flen, hart.ISAString(got), hart.ISAString(want))
		}
		for i := range 32 {
			if got := h.Float(i) == 0; got != tc.cleared {
				t.Errorf("flen %d: f%d = %#x", tc.flen, i, h.Float(i))
				break
			}
		}
		if tc.cleared && h.Read(hart.Fcsr) != 0 {
			t.Errorf("flen %d: fcsr not cleared", tc.flen)
		}
	}
}

func TestInitFloatWithoutFPU(t *testing.T) {
	l := newLoader(standard)
	h := sim.New(sim.Config{ISA: isa(t, "rv64imac")})
	initStatus(h)
	l.initFloat(h)
	if h.Float(0) == 0 {
		t.Error("float registers touched")
	}
}

func TestInitCounters(t *testing.T) {
	const vec = 0x8000_0100
	for _, n := range []int{0, 2, len(CounterEvents)} {
		l := newLoader(standard)
		h := sim.New(sim.Config{ISA: isa(t, "rv64imasu"), HPM: n})
		h.Write(hart.Mtvec, vec)
		l.initCounters(h)

		if got := h.Read(hart.Mtvec); got != vec {
			t.Errorf("%d counters: mtvec = %#x, want %#x", n, got, vec)
		}
		if got := len(h.Absorbed) != 0; got != (n < len(CounterEvents)) {
			t.Errorf("%d counters: %d faults absorbed", n, len(h.Absorbed))
		}
		for i := range n {
			if got := h.Read(hart.Mhpmevent(3 + i)); got != CounterEvents[i] {
				t.Errorf("%d counters: mhpmevent%d = %#x, want %#x", n, 3+i, got, CounterEvents[i])
			}
		}
		if n > 0 && h.Read(hart.Mcountinhibit) != 0 {
			t.Errorf("%d counters: still inhibited", n)
		}
		if got := h.Read(hart.Mcounteren); got != 0xffff_ffff {
			t.Errorf("%d counters: mcounteren = %#x", n, got)
		}
	}
}

func TestDelegateTraps(t *testing.T) {
	for _, tc := range []struct {
		name  string
		isa   string
		v     Variant
		cheri bool
		want  bool
	}{
		{"standard", "rv64imasu", standard, false, true},
		{"capability", "rv64imasu", Variant{Mode: Capability{}}, true, true},
		{"no supervisor", "rv64imau", standard, false, false},
		{"boot machine", "rv64imasu", Variant{Mode: Standard{}, BootMachine: true}, false, false},
	} {
		l := newLoader(tc.v)
		h := sim.New(sim.Config{ISA: isa(t, tc.isa), Cheri: tc.cheri})
		l.delegateTraps(h)

		if !tc.want {
			if h.Wrote(hart.Mideleg) || h.Wrote(hart.Medeleg) {
				t.Errorf("%s: delegation written", tc.name)
			}
			continue
		}
		if got := h.Read(hart.Mideleg); got != hart.IntSSIP|hart.IntSTIP|hart.IntSEIP {
			t.Errorf("%s: mideleg = %#x", tc.name, got)
		}
		if got, want := h.Read(hart.Medeleg), tc.v.Mode.Exceptions(); got != want {
			t.Errorf("%s: medeleg = %#x, want %#x", tc.name, got, want)
		}
	}
}

func TestCapabilityExceptions(t *testing.T) {
	extra := Capability{}.Exceptions() &^ Standard{}.Exceptions()
	want := hart.CauseLoadCapPageFault.Bit() | hart.CauseStoreCapPageFault.Bit() | hart.CauseCapability.Bit()
	if extra != want {
		t.Errorf("capability mode adds %#x, want %#x", extra, want)
	}
}

// stubborn drops breakpoints from medeleg, like a hart that can't delegate
// them.
type stubborn struct{ *sim.Hart }

func (h stubborn) Write(csr hart.CSR, v uint64) {
	if csr == hart.Medeleg {
		v &^= hart.CauseBreakpoint.Bit()
	}
	h.Hart.Write(csr, v)
}

func TestDelegationMismatch(t *testing.T) {
	var console bytes.Buffer
	l := newLoader(standard)
	l.Platform.Console = &console
	l.Platform.Finisher = fdttest.Finisher
	h := sim.New(sim.Config{ISA: isa(t, "rv64imasu")})

	err := h.Run(func() { l.delegateTraps(stubborn{h}) })
	if !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("got %v, want halt", err)
	}
	if got := console.String(); !strings.Contains(got, "bbl: fatal: medeleg not accepted") {
		t.Errorf("console: %q", got)
	}
	if got := mmio.U32At(l.Mapper, fdttest.Finisher).Load(); got != 1<<16|0x3333 {
		t.Errorf("finisher = %#x", got)
	}
}

func TestSetupPMP(t *testing.T) {
	const vec = 0x8000_0100
	for _, pmp := range []bool{true, false} {
		h := sim.New(sim.Config{ISA: isa(t, "rv64imasu"), PMP: pmp})
		h.Write(hart.Mtvec, vec)
		Standard{}.SetupPMP(h)

		if got := h.Read(hart.Mtvec); got != vec {
			t.Errorf("pmp %v: mtvec = %#x", pmp, got)
		}
		if !pmp {
			if len(h.Absorbed) == 0 {
				t.Error("no fault without PMP")
			}
			continue
		}
		if got := h.Read(hart.Pmpaddr0); got != 1<<54-1 {
			t.Errorf("pmpaddr0 = %#x", got)
		}
		if got := h.Read(hart.Pmpcfg0); got != hart.PMPNAPOT|hart.PMPR|hart.PMPW|hart.PMPX {
			t.Errorf("pmpcfg0 = %#x", got)
		}
	}
}

func TestSetupPMPCapability(t *testing.T) {
	h := sim.New(sim.Config{ISA: isa(t, "rv64imasu"), PMP: true, Cheri: true})
	h.WriteSCR(hart.MTCC, 0x100)
	Capability{}.SetupPMP(h)
	if got := h.ReadSCR(hart.MTCC); got != 0x100 {
		t.Errorf("mtcc = %#x", got)
	}
	if h.Wrote(hart.Mtvec) {
		t.Error("mtvec used in capability mode")
	}
	if got := h.Read(hart.Pmpcfg0); got != 0x1f {
		t.Errorf("pmpcfg0 = %#x", got)
	}
}

func latches(t *testing.T, n int) (*sim.Bus, []*mmio.U32) {
	t.Helper()
	bus := new(sim.Bus)
	bus.Add(fdttest.CLINT, sim.ClintSize)
	var l []*mmio.U32
	for i := range n {
		l = append(l, mmio.U32At(bus, fdttest.CLINT+4*uintptr(i)))
	}
	return bus, l
}

func TestWakeHarts(t *testing.T) {
	_, ipi := latches(t, 4)
	tbl := new(platform.Table)
	for i, r := range ipi {
		tbl.Init(uintptr(i)).IPI = r
	}
	c := &platform.Config{HartMask: 0b1011, DisabledHarts: 0b0010}
	WakeHarts(c, tbl)

	for i, want := range []uint32{1, 0, 0, 1} {
		if got := ipi[i].Load(); got != want {
			t.Errorf("hart %d latch = %d, want %d", i, got, want)
		}
	}
}

func TestInitHartInterrupts(t *testing.T) {
	for _, sources := range []int{0, 4} {
		bus, ipi := latches(t, 1)
		bus.Add(fdttest.PLIC, plic.Size(2))
		p := plic.New(bus, fdttest.PLIC, sources)
		local := &platform.Local{
			IPI:        ipi[0],
			Timecmp:    mmio.U64At(bus, fdttest.CLINT+sim.ClintMtimecmp),
			MIE:        p.Enable(0),
			SIE:        p.Enable(1),
			MThreshold: p.Threshold(0),
			SThreshold: p.Threshold(1),
		}
		local.IPI.Store(1)
		local.Timecmp.Store(5)
		local.MThreshold.Store(7)
		local.SThreshold.Store(7)
		h := sim.New(sim.Config{ISA: isa(t, "rv64imasu"), IPI: local.IPI, Timecmp: local.Timecmp})

		initHartInterrupts(h, local, sources)

		if local.IPI.Load() != 0 {
			t.Errorf("%d sources: latch not cleared", sources)
		}
		if local.Timecmp.Load() != ^uint64(0) {
			t.Errorf("%d sources: timer armed", sources)
		}
		if got := h.Read(hart.Mip); got != 0 {
			t.Errorf("%d sources: mip = %#x", sources, got)
		}
		m, s := local.MThreshold.Load(), local.SThreshold.Load()
		enabled := local.SIE[0].Load()
		if sources == 0 {
			if m != 7 || s != 7 || enabled != 0 {
				t.Errorf("no sources: PLIC written, thresholds %d/%d enable %#x", m, s, enabled)
			}
			continue
		}
		if m != 1 || s != 0 || enabled != ^uint32(0) {
			t.Errorf("%d sources: thresholds %d/%d enable %#x", sources, m, s, enabled)
		}
		if local.MIE[0].Load() != 0 {
			t.Errorf("%d sources: machine context enabled", sources)
		}
	}
}

func TestNormalizeMemory(t *testing.T) {
	for _, tc := range []struct{ in, out uintptr }{
		{0x8030_0000, 0x8020_0000},
		{0x20_0000, 0x20_0000},
		{0x1f_ffff, 0},
		{0, 0},
	} {
		if got := NormalizeMemory(tc.in); got != tc.out {
			t.Errorf("NormalizeMemory(%#x) = %#x, want %#x", tc.in, got, tc.out)
		}
	}
}

func TestNewFrame(t *testing.T) {
	for _, flen := range []int{0, 64} {
		l := newLoader(Variant{Mode: Standard{}, FLen: flen})
		h := sim.New(sim.Config{ID: 1, ISA: isa(t, "rv64imafdsu")})
		h.Write(hart.Mstatus, hart.MstatusMPIE|hart.MstatusMPP)
		*l.Stacks.FrameSlot(1, 0) = 42

		f := l.NewFrame(h, hart.Supervisor, 0x8020_0000, 1, fdttest.DTB)

		if got := hart.ExtractField(f.Status, hart.MstatusMPP); got != uint64(hart.Supervisor) {
			t.Errorf("flen %d: MPP = %d", flen, got)
		}
		if f.Status&hart.MstatusMPIE != 0 {
			t.Errorf("flen %d: MPIE set", flen)
		}
		if want := l.Stacks.Top(1) - platform.FrameSize; f.Scratch != want {
			t.Errorf("flen %d: scratch = %#x, want %#x", flen, f.Scratch, want)
		}
		if f.Args != [2]uintptr{1, fdttest.DTB} || f.Entry != 0x8020_0000 {
			t.Errorf("flen %d: frame %+v", flen, f)
		}
		want := uint64(42)
		if flen == 0 {
			want = 0
		}
		if got := *l.Stacks.FrameSlot(1, 0); got != want {
			t.Errorf("flen %d: x0 slot = %d, want %d", flen, got, want)
		}
	}
}

func TestEnter(t *testing.T) {
	for _, tc := range []struct {
		name  string
		mode  Mode
		cheri bool
		enter func(l *Loader, h hart.Hart, entry, a0, a1 uintptr)
		want  sim.Transition
	}{
		{"supervisor", Standard{}, false, (*Loader).EnterSupervisor, sim.Transition{
			Mret: true, Status: uint64(hart.Supervisor) << 11,
		}},
		{"machine", Standard{}, false, (*Loader).EnterMachine, sim.Transition{
			Status: uint64(hart.Machine) << 11,
		}},
		{"capability", Capability{}, true, (*Loader).EnterSupervisor, sim.Transition{
			Status: uint64(hart.Supervisor) << 11, Restricted: true,
		}},
	} {
		l := newLoader(Variant{Mode: tc.mode, FLen: 64})
		h := sim.New(sim.Config{ISA: isa(t, "rv64imasu"), Cheri: tc.cheri})
		h.Write(hart.Mstatus, hart.MstatusMPIE)

		if err := h.Run(func() { tc.enter(l, h, 0x8020_0000, 0, fdttest.DTB) }); err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		want := tc.want
		want.Entry = 0x8020_0000
		want.Args = [2]uintptr{0, fdttest.DTB}
		want.Scratch = uint64(l.Stacks.Frame(0))
		got := *h.Transition
		got.Status &= hart.MstatusMPP | hart.MstatusMPIE
		if got != want {
			t.Errorf("%s: transition %+v, want %+v", tc.name, got, want)
		}
		if s := l.State(0); s != Transitioned {
			t.Errorf("%s: state %v", tc.name, s)
		}
	}
}

func TestKernelChosen(t *testing.T) {
	l := newLoader(standard)
	l.Platform.KernelStart = 0x8040_0000
	h := sim.New(sim.Config{ISA: isa(t, "rv64imasu")})
	if err := h.Run(func() { Kernel{Entry: 0x8020_0000}.Boot(l, h, 0) }); err != nil {
		t.Fatal(err)
	}
	if got := h.Transition.Entry; got != 0x8040_0000 {
		t.Errorf("entered %#x, want the /chosen kernel", got)
	}
}

func TestException(t *testing.T) {
	var console bytes.Buffer
	l := newLoader(standard)
	l.Platform.Console = &console
	h := sim.New(sim.Config{ISA: isa(t, "rv64imasu")})
	h.Write(hart.Mcause, uint64(hart.CauseIllegalInsn))
	h.Write(hart.Mepc, 0x1234)

	if err := h.Run(func() { l.Exception(h) }); !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("got %v, want halt", err)
	}
	for _, want := range []string{
		"Unhandled Illegal instruction Exception",
		"epc      0x0000000000001234",
		"bbl: fatal: unhandled trap",
	} {
		if !strings.Contains(console.String(), want) {
			t.Errorf("console lacks %q:\n%s", want, console.String())
		}
	}
}

func TestCauseName(t *testing.T) {
	if got := CauseName(hart.CauseCapability); got != "Capability fault" {
		t.Errorf("got %q", got)
	}
	if got := CauseName(0x3f); got != "Unknown" {
		t.Errorf("got %q", got)
	}
}
