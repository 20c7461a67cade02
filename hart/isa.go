package hart

import (
	"errors"
	"strings"
)

// Base ISA widths as encoded in misa.MXL.
const (
	MXL32 uint64 = 1 << 30
	MXL64 uint64 = 2 << 62
)

// ExtBit returns the misa bit of extension ext.
func ExtBit(ext byte) uint64 {
	return 1 << (ext - 'A')
}

// Supports reports whether h implements extension ext, given as its upper
// case letter.
func Supports(h Hart, ext byte) bool {
	return h.Read(Misa)&ExtBit(ext) != 0
}

// ISAString formats the extension bits of misa as rv64imafd... The base
// width is taken from misa.MXL.
func ISAString(misa uint64) string {
	var sb strings.Builder
	switch {
	case misa&MXL64 == MXL64:
		sb.WriteString("rv64")
	default:
		sb.WriteString("rv32")
	}
	for ext := byte('A'); ext <= 'Z'; ext++ {
		if misa&ExtBit(ext) != 0 {
			sb.WriteByte(ext - 'A' + 'a')
		}
	}
	return sb.String()
}

// ParseISA is the inverse of ISAString. The letter g expands to imafd.
// Multi-letter extensions following an underscore are ignored.
func ParseISA(isa string) (misa uint64, err error) {
	isa = strings.ToLower(isa)
	isa, _, _ = strings.Cut(isa, "_")
	switch {
	case strings.HasPrefix(isa, "rv64"):
		misa = MXL64
	case strings.HasPrefix(isa, "rv32"):
		misa = MXL32
	default:
		return 0, errors.New("isa: missing rv32/rv64 prefix: " + isa)
	}
	for _, c := range isa[4:] {
		switch {
		case c == 'g':
			for _, e := range "IMAFD" {
				misa |= ExtBit(byte(e))
			}
		case c >= 'a' && c <= 'z':
			misa |= ExtBit(byte(c) - 'a' + 'A')
		default:
			return 0, errors.New("isa: bad extension letter in " + isa)
		}
	}
	return misa, nil
}
