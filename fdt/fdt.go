// Package fdt discovers the platform from a flattened device tree: memory,
// harts, the CLINT, the PLIC, the test finisher, the early console and the
// payload range passed in /chosen.
//
// Parsing is done by u-root's dt package; this package only interprets the
// nodes the loader cares about and records what it finds in a
// platform.Config and platform.Table.
package fdt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/rvboot/bbl/mmio"
)

const magic = 0xd00dfeed

// Tree is a parsed device tree together with the mapping used to reach the
// devices it describes.
type Tree struct {
	root *dt.Node
	m    mmio.Mapper

	parent  map[*dt.Node]*dt.Node
	phandle map[uint32]*dt.Node
	intc    map[uint32]uintptr // interrupt controller phandle to hart id
}

// New indexes tree for discovery.
func New(tree *dt.FDT, m mmio.Mapper) *Tree {
	t := &Tree{
		root:    tree.RootNode,
		m:       m,
		parent:  make(map[*dt.Node]*dt.Node),
		phandle: make(map[uint32]*dt.Node),
		intc:    make(map[uint32]uintptr),
	}
	t.index(t.root)
	return t
}

func (t *Tree) index(n *dt.Node) {
	if ph, ok := u32(n, "phandle"); ok {
		t.phandle[ph] = n
	} else if ph, ok := u32(n, "linux,phandle"); ok {
		t.phandle[ph] = n
	}
	for _, c := range n.Children {
		t.parent[c] = n
		t.index(c)
	}
}

// Read parses the device tree blob in r.
func Read(r io.ReadSeeker, m mmio.Mapper) (*Tree, error) {
	tree, err := dt.ReadFDT(r)
	if err != nil {
		return nil, fmt.Errorf("fdt: %w", err)
	}
	return New(tree, m), nil
}

// Open parses the device tree blob at physical address dtb.
func Open(dtb uintptr, m mmio.Mapper) (*Tree, error) {
	hdr := m.Map(dtb, 8)
	if hdr == nil {
		return nil, errors.New("fdt: blob not mapped")
	}
	h := unsafe.Slice((*byte)(hdr), 8)
	if binary.BigEndian.Uint32(h) != magic {
		return nil, errors.New("fdt: bad magic")
	}
	size := uintptr(binary.BigEndian.Uint32(h[4:]))
	p := m.Map(dtb, size)
	if p == nil {
		return nil, errors.New("fdt: blob truncated")
	}
	return Read(bytes.NewReader(unsafe.Slice((*byte)(p), size)), m)
}

// Root returns the root node.
func (t *Tree) Root() *dt.Node { return t.root }

func prop(n *dt.Node, name string) ([]byte, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func u32(n *dt.Node, name string) (uint32, bool) {
	v, ok := prop(n, name)
	if !ok || len(v) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// cells splits a property value into 32-bit cells.
func cells(v []byte) []uint32 {
	c := make([]uint32, len(v)/4)
	for i := range c {
		c[i] = binary.BigEndian.Uint32(v[4*i:])
	}
	return c
}

// number joins the leading n cells of c into one value.
func number(c []uint32, n int) uint64 {
	var v uint64
	for _, x := range c[:n] {
		v = v<<32 | uint64(x)
	}
	return v
}

func str(n *dt.Node, name string) (string, bool) {
	v, ok := prop(n, name)
	if !ok {
		return "", false
	}
	return strings.TrimRight(string(v), "\x00"), true
}

func compatible(n *dt.Node, names ...string) bool {
	v, ok := prop(n, "compatible")
	if !ok {
		return false
	}
	for _, c := range strings.Split(strings.TrimRight(string(v), "\x00"), "\x00") {
		for _, name := range names {
			if c == name {
				return true
			}
		}
	}
	return false
}

func (t *Tree) addressCells(n *dt.Node) (addr, size int) {
	addr, size = 2, 1
	p := t.parent[n]
	if p == nil {
		return
	}
	if v, ok := u32(p, "#address-cells"); ok {
		addr = int(v)
	}
	if v, ok := u32(p, "#size-cells"); ok {
		size = int(v)
	}
	return
}

// Region is an address range from a reg property.
type Region struct {
	Base, Size uint64
}

func (t *Tree) reg(n *dt.Node) []Region {
	v, ok := prop(n, "reg")
	if !ok {
		return nil
	}
	ac, sc := t.addressCells(n)
	c := cells(v)
	var regs []Region
	for len(c) >= ac+sc && ac+sc > 0 {
		regs = append(regs, Region{number(c, ac), number(c[ac:], sc)})
		c = c[ac+sc:]
	}
	return regs
}

// find returns all nodes below n for which match returns true, in tree order.
func find(n *dt.Node, match func(*dt.Node) bool) []*dt.Node {
	var found []*dt.Node
	var walk func(*dt.Node)
	walk = func(n *dt.Node) {
		if match(n) {
			found = append(found, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return found
}

func isCompatible(names ...string) func(*dt.Node) bool {
	return func(n *dt.Node) bool { return compatible(n, names...) }
}

func deviceType(typ string) func(*dt.Node) bool {
	return func(n *dt.Node) bool {
		s, ok := str(n, "device_type")
		return ok && s == typ
	}
}

// interrupts returns the (phandle, irq) pairs of an interrupts-extended
// property whose controllers all use one interrupt cell.
func interrupts(n *dt.Node) [][2]uint32 {
	v, ok := prop(n, "interrupts-extended")
	if !ok {
		return nil
	}
	c := cells(v)
	pairs := make([][2]uint32, 0, len(c)/2)
	for i := 0; i+1 < len(c); i += 2 {
		pairs = append(pairs, [2]uint32{c[i], c[i+1]})
	}
	return pairs
}
