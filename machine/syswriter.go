package machine

import (
	"github.com/rvboot/bbl/drivers/finisher"
	"github.com/rvboot/bbl/hart"
)

// printm writes msg to the early console, if there is one. Output is
// dropped before the console is discovered.
func (l *Loader) printm(msg ...string) {
	w := l.Platform.Console
	if w == nil {
		return
	}
	for _, s := range msg {
		w.Write([]byte(s))
	}
}

// hex formats v as 16 hex digits.
func hex(v uint64) string {
	var buf [16]byte
	return string(itoa(buf[:], v))
}

//go:nosplit
func itoa(buf []byte, num uint64) []byte {
	for i := range 16 {
		char := byte(num>>(60-(4*i))) & 0xf
		if char > 9 {
			char += 'a' - 10
		} else {
			char += '0'
		}
		buf[i] = char
	}
	return buf
}

// die reports a fatal error, asks the platform to power off and stops h.
func (l *Loader) die(h hart.Hart, msg string) {
	l.printm("bbl: fatal: ", msg, "\r\n")
	if f := finisher.New(l.Mapper, l.Platform.Finisher); f != nil {
		f.Fail(1)
	}
	h.Halt()
}
