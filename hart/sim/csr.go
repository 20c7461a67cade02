package sim

import "github.com/rvboot/bbl/hart"

const pmpAddrMask = 1<<54 - 1

func (h *Hart) implemented(csr hart.CSR) bool {
	switch {
	case csr == hart.Fflags, csr == hart.Frm, csr == hart.Fcsr:
		return h.has('F') && h.csr[hart.Mstatus]&hart.MstatusFS != 0
	case csr == hart.Cycle, csr == hart.Time:
		return true
	case csr>>8 == 1:
		if !h.has('S') {
			return false
		}
		switch csr {
		case hart.Sstatus, hart.Sie, hart.Stvec, hart.Scounteren,
			hart.Sscratch, hart.Sepc, hart.Scause, hart.Stval, hart.Sip,
			hart.Satp:
			return true
		}
		return false
	case csr == hart.Medeleg, csr == hart.Mideleg:
		return h.has('S')
	case csr == hart.Mcounteren:
		return h.has('U')
	case csr == hart.Mcountinhibit:
		return h.cfg.HPM > 0
	case csr >= hart.Mhpmevent3 && csr <= hart.Mhpmevent(31):
		return int(csr-hart.Mhpmevent3) < h.cfg.HPM
	case csr >= hart.Mhpmcounter3 && csr <= hart.Mhpmcounter(31):
		return int(csr-hart.Mhpmcounter3) < h.cfg.HPM
	case csr == hart.Pmpcfg0, csr == hart.Pmpaddr0:
		return h.cfg.PMP
	}
	switch csr {
	case hart.Mstatus, hart.Misa, hart.Mie, hart.Mtvec, hart.Mscratch,
		hart.Mepc, hart.Mcause, hart.Mtval, hart.Mip, hart.Mcycle,
		hart.Minstret, hart.Mvendorid, hart.Marchid, hart.Mimpid,
		hart.Mhartid:
		return true
	}
	return false
}

func (h *Hart) load(csr hart.CSR) uint64 {
	switch csr {
	case hart.Mstatus:
		v := h.csr[hart.Mstatus]
		if v&hart.MstatusFS == hart.MstatusFS || v&hart.MstatusVS == hart.MstatusVS {
			v |= hart.MstatusSD
		}
		if h.has('U') {
			v |= 2 << 32
		}
		if h.has('S') {
			v |= 2 << 34
		}
		return v
	case hart.Mip:
		return h.csr[hart.Mip] | h.pending()
	case hart.Fflags:
		return h.csr[hart.Fcsr] & 0x1f
	case hart.Frm:
		return h.csr[hart.Fcsr] >> 5 & 7
	}
	return h.csr[csr]
}

func (h *Hart) pending() uint64 {
	var p uint64
	if h.cfg.IPI != nil && h.cfg.IPI.Load()&1 != 0 {
		p |= hart.IntMSIP
	}
	if h.cfg.Timecmp != nil && h.cfg.Mtime != nil && h.cfg.Mtime.Load() >= h.cfg.Timecmp.Load() {
		p |= hart.IntMTIP
	}
	return p
}

func (h *Hart) statusMask() uint64 {
	m := uint64(hart.MstatusMIE | hart.MstatusMPIE | hart.MstatusMPP)
	if h.has('S') {
		m |= hart.MstatusSIE | hart.MstatusSPIE | hart.MstatusSPP |
			hart.MstatusSUM | hart.MstatusMXR | hart.MstatusTVM |
			hart.MstatusTW | hart.MstatusTSR
	}
	if h.has('U') {
		m |= hart.MstatusMPRV
	}
	if h.has('F') {
		m |= hart.MstatusFS
	}
	if h.has('V') {
		m |= hart.MstatusVS
	}
	return m
}

func (h *Hart) legalPrivilege(p hart.Privilege) bool {
	switch p {
	case hart.Machine:
		return true
	case hart.Supervisor:
		return h.has('S')
	case hart.User:
		return h.has('U')
	}
	return false
}

func (h *Hart) store(csr hart.CSR, v uint64) {
	switch csr {
	case hart.Mstatus:
		old := h.csr[hart.Mstatus]
		v &= h.statusMask()
		if !h.legalPrivilege(hart.Privilege(hart.ExtractField(v, hart.MstatusMPP))) {
			v = v&^hart.MstatusMPP | old&hart.MstatusMPP
		}
		h.csr[csr] = v
	case hart.Misa:
		// F and D may be switched off, nothing may be switched on.
		cleared := ^v & (hart.ExtBit('F') | hart.ExtBit('D'))
		if cleared&hart.ExtBit('F') != 0 {
			cleared |= hart.ExtBit('D')
		}
		h.csr[csr] &^= cleared
	case hart.Medeleg:
		m := uint64(0xffff) &^ hart.CauseMachineEcall.Bit()
		if h.cfg.Cheri {
			m |= hart.CauseLoadCapPageFault.Bit() | hart.CauseStoreCapPageFault.Bit() |
				hart.CauseCapability.Bit()
		}
		h.csr[csr] = v & m
	case hart.Mideleg:
		h.csr[csr] = v & (hart.IntSSIP | hart.IntSTIP | hart.IntSEIP)
	case hart.Mie:
		m := uint64(hart.IntMSIP | hart.IntMTIP | hart.IntMEIP)
		if h.has('S') {
			m |= hart.IntSSIP | hart.IntSTIP | hart.IntSEIP
		}
		h.csr[csr] = v & m
	case hart.Mip:
		m := uint64(0)
		if h.has('S') {
			m = hart.IntSSIP | hart.IntSTIP | hart.IntSEIP
		}
		h.csr[csr] = v & m
	case hart.Mtvec:
		h.csr[csr] = v &^ 2
	case hart.Mepc, hart.Sepc:
		h.csr[csr] = v &^ 1
	case hart.Satp:
		if mode := v >> 60; mode == 0 || mode == 8 || mode == 9 {
			h.csr[csr] = v
		}
	case hart.Mcounteren, hart.Scounteren:
		h.csr[csr] = v & 0xffff_ffff
	case hart.Mcountinhibit:
		m := uint64(1<<0 | 1<<2)
		m |= (1<<h.cfg.HPM - 1) << 3
		h.csr[csr] = v & m
	case hart.Pmpaddr0:
		h.csr[csr] = v & pmpAddrMask
	case hart.Pmpcfg0:
		h.csr[csr] = v & 0x9f9f_9f9f_9f9f_9f9f
	case hart.Fcsr:
		h.csr[csr] = v & 0xff
		h.csr[hart.Mstatus] |= hart.MstatusFS
	case hart.Fflags:
		h.csr[hart.Fcsr] = h.csr[hart.Fcsr]&^0x1f | v&0x1f
	case hart.Frm:
		h.csr[hart.Fcsr] = h.csr[hart.Fcsr]&^0xe0 | (v&7)<<5
	default:
		h.csr[csr] = v
	}
}
