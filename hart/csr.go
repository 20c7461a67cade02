package hart

// CSR is the 12-bit address of a control and status register.
type CSR uint16

// Unprivileged
const (
	Fflags CSR = 0x001
	Frm    CSR = 0x002
	Fcsr   CSR = 0x003
	Cycle  CSR = 0xc00
	Time   CSR = 0xc01
)

// Supervisor
const (
	Sstatus    CSR = 0x100
	Sie        CSR = 0x104
	Stvec      CSR = 0x105
	Scounteren CSR = 0x106
	Sscratch   CSR = 0x140
	Sepc       CSR = 0x141
	Scause     CSR = 0x142
	Stval      CSR = 0x143
	Sip        CSR = 0x144
	Satp       CSR = 0x180
)

// Machine
const (
	Mstatus       CSR = 0x300
	Misa          CSR = 0x301
	Medeleg       CSR = 0x302
	Mideleg       CSR = 0x303
	Mie           CSR = 0x304
	Mtvec         CSR = 0x305
	Mcounteren    CSR = 0x306
	Mcountinhibit CSR = 0x320
	Mhpmevent3    CSR = 0x323
	Mscratch      CSR = 0x340
	Mepc          CSR = 0x341
	Mcause        CSR = 0x342
	Mtval         CSR = 0x343
	Mip           CSR = 0x344
	Pmpcfg0       CSR = 0x3a0
	Pmpaddr0      CSR = 0x3b0
	Mcycle        CSR = 0xb00
	Minstret      CSR = 0xb02
	Mhpmcounter3  CSR = 0xb03
	Mvendorid     CSR = 0xf11
	Marchid       CSR = 0xf12
	Mimpid        CSR = 0xf13
	Mhartid       CSR = 0xf14
)

// NumHPM is the number of programmable performance counters the
// architecture reserves, mhpmcounter3 to mhpmcounter31.
const NumHPM = 29

// Mhpmevent returns the event selector of programmable counter n (3 <= n <= 31).
func Mhpmevent(n int) CSR { return Mhpmevent3 + CSR(n-3) }

// Mhpmcounter returns programmable counter n (3 <= n <= 31).
func Mhpmcounter(n int) CSR { return Mhpmcounter3 + CSR(n-3) }

// CSRs returns every register named in this package, ordered by group and
// address, followed by the programmable counter registers.
func CSRs() []CSR {
	csrs := []CSR{
		Fflags, Frm, Fcsr, Cycle, Time,
		Sstatus, Sie, Stvec, Scounteren, Sscratch, Sepc, Scause, Stval, Sip, Satp,
		Mstatus, Misa, Medeleg, Mideleg, Mie, Mtvec, Mcounteren, Mcountinhibit,
		Mscratch, Mepc, Mcause, Mtval, Mip, Pmpcfg0, Pmpaddr0, Mcycle, Minstret,
		Mvendorid, Marchid, Mimpid, Mhartid,
	}
	for n := 3; n < 3+NumHPM; n++ {
		csrs = append(csrs, Mhpmevent(n))
	}
	for n := 3; n < 3+NumHPM; n++ {
		csrs = append(csrs, Mhpmcounter(n))
	}
	return csrs
}

// ReadOnly reports whether the register cannot be written at all.
func (c CSR) ReadOnly() bool { return c>>10 == 3 }

// Privilege returns the lowest privilege level allowed to access c.
func (c CSR) Privilege() Privilege { return Privilege(c >> 8 & 3) }

// mstatus fields
const (
	MstatusSIE  = 1 << 1
	MstatusMIE  = 1 << 3
	MstatusSPIE = 1 << 5
	MstatusMPIE = 1 << 7
	MstatusSPP  = 1 << 8
	MstatusVS   = 3 << 9
	MstatusMPP  = 3 << 11
	MstatusFS   = 3 << 13
	MstatusXS   = 3 << 15
	MstatusMPRV = 1 << 17
	MstatusSUM  = 1 << 18
	MstatusMXR  = 1 << 19
	MstatusTVM  = 1 << 20
	MstatusTW   = 1 << 21
	MstatusTSR  = 1 << 22
	MstatusUXL  = 3 << 32
	MstatusSXL  = 3 << 34
	MstatusSD   = 1 << 63
)

// mip and mie bits
const (
	IntSSIP = 1 << 1
	IntMSIP = 1 << 3
	IntSTIP = 1 << 5
	IntMTIP = 1 << 7
	IntSEIP = 1 << 9
	IntMEIP = 1 << 11
)

// pmpcfg fields
const (
	PMPR     = 0x01
	PMPW     = 0x02
	PMPX     = 0x04
	PMPTOR   = 0x08
	PMPNA4   = 0x10
	PMPNAPOT = 0x18
	PMPL     = 0x80
)

// Cause is an exception code as reported in mcause.
type Cause uint64

const (
	CauseMisalignedFetch Cause = 0x0
	CauseFetchAccess     Cause = 0x1
	CauseIllegalInsn     Cause = 0x2
	CauseBreakpoint      Cause = 0x3
	CauseMisalignedLoad  Cause = 0x4
	CauseLoadAccess      Cause = 0x5
	CauseMisalignedStore Cause = 0x6
	CauseStoreAccess     Cause = 0x7
	CauseUserEcall       Cause = 0x8
	CauseSupervisorEcall Cause = 0x9
	CauseMachineEcall    Cause = 0xb
	CauseFetchPageFault  Cause = 0xc
	CauseLoadPageFault   Cause = 0xd
	CauseStorePageFault  Cause = 0xf

	// Raised only by harts running in capability mode.
	CauseLoadCapPageFault  Cause = 0x1a
	CauseStoreCapPageFault Cause = 0x1b
	CauseCapability        Cause = 0x1c
)

// Bit returns the medeleg bit of c.
func (c Cause) Bit() uint64 { return 1 << c }

// Privilege is a RISC-V privilege level as encoded in mstatus.MPP.
type Privilege uint64

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

// InsertField replaces the bits of field in v with val, shifted to the
// field's position.
func InsertField(v, field, val uint64) uint64 {
	return v&^field | val*(field&^(field-1))&field
}

// ExtractField returns the bits of field in v, shifted down.
func ExtractField(v, field uint64) uint64 {
	return v & field / (field &^ (field - 1))
}
