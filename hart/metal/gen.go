//go:build ignore

// Gen writes csr_table_riscv64.s, the tables of csrr and csrw instructions used
// by Read and Write. The assembler has no generic way to name a CSR, so
// every entry is an encoded instruction word.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/rvboot/bbl/hart"
)

const (
	csrrsA0 = 0x2573  // csrrs a0, csr, zero
	csrrwA0 = 0x51073 // csrrw zero, csr, a0
	jalrT2  = 0x38067 // jalr zero, 0(t2)
)

func table(buf *bytes.Buffer, name string, op uint32) {
	fmt.Fprintf(buf, "\nTEXT %s<>(SB),NOSPLIT|NOFRAME,$0\n", name)
	for _, c := range hart.CSRs() {
		fmt.Fprintf(buf, "\tWORD\t$0x%08x\t// %#x\n", uint32(c)<<20|op, uint16(c))
		fmt.Fprintf(buf, "\tWORD\t$0x%08x\n", jalrT2)
	}
}

// Each table entry is 8 bytes and returns through t2.
const dispatch = `
// func csrRead(i int) uint64
TEXT ·csrRead(SB),NOSPLIT|NOFRAME,$0-16
	MOV	i+0(FP), T0
	SLL	$3, T0
	MOV	$csrReadTable<>(SB), T1
	ADD	T0, T1
	WORD	$0x000303e7	// jalr t2, 0(t1)
	MOV	A0, ret+8(FP)
	RET

// func csrWrite(i int, v uint64)
TEXT ·csrWrite(SB),NOSPLIT|NOFRAME,$0-16
	MOV	i+0(FP), T0
	MOV	v+8(FP), A0
	SLL	$3, T0
	MOV	$csrWriteTable<>(SB), T1
	ADD	T0, T1
	WORD	$0x000303e7	// jalr t2, 0(t1)
	RET
`

func main() {
	log.SetFlags(0)
	var buf bytes.Buffer
	buf.WriteString("// Code generated by gen.go; DO NOT EDIT.\n\n//go:build noos\n\n#include \"textflag.h\"\n")
	buf.WriteString(dispatch)
	table(&buf, "csrReadTable", csrrsA0)
	table(&buf, "csrWriteTable", csrrwA0)
	if err := os.WriteFile("csr_table_riscv64.s", buf.Bytes(), 0o644); err != nil {
		log.Fatalln(err)
	}
}
