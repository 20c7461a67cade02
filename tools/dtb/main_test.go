// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dtb

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rvboot/bbl/fdt"
	"github.com/rvboot/bbl/fdt/fdttest"
)

func TestPages(t *testing.T) {
	var p Pages
	a := p.Map(0x1000_0000, 8)
	if a == nil || p.Map(0x1000_0000, 8) != a {
		t.Fatal("same address mapped twice differently")
	}
	if p.Map(0x1000_fffc, 8) != nil {
		t.Error("mapping crosses a page")
	}
	if got := p.Phys(uintptr(a) + 4); got != 0x1000_0004 {
		t.Errorf("Phys = %#x", got)
	}
}

func TestReport(t *testing.T) {
	v := fdttest.Virt{Harts: 2, Disabled: 0b10, Sources: 40, MemSize: 0x800_0000}
	var mem Pages
	tree, err := fdt.Read(bytes.NewReader(fdttest.Encode(v.Tree())), &mem)
	if err != nil {
		t.Fatal(err)
	}
	c, tbl, console := Discover(tree)
	if !console {
		t.Error("no console")
	}
	var out bytes.Buffer
	Report(&out, c, tbl, mem.Phys)

	var lines []string
	for _, l := range strings.Split(out.String(), "\n") {
		lines = append(lines, strings.Join(strings.Fields(l), " "))
	}
	report := strings.Join(lines, "\n")
	for _, want := range []string{
		"memory 0x80000000-0x88000000",
		"harts 0b11 (disabled 0b10)",
		"plic sources 40",
		"mtime 0x200bff8",
		"finisher 0x100000",
		"0 0x2000000 0x2004000 0xc200000 0xc201000 2",
		"1 0x2000004 0x2004008 0xc202000 0xc203000 2",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report lacks %q:\n%s", want, report)
		}
	}
}
