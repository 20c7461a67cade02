package fdttest

import (
	"bytes"
	"encoding/binary"

	"github.com/u-root/u-root/pkg/dt"
)

const (
	tokenBeginNode = 1
	tokenEndNode   = 2
	tokenProp      = 3
	tokenEnd       = 9

	rsvmapOff  = 48
	structOff  = rsvmapOff + 16
)

// Encode flattens tree into a version 17 blob with an empty memory
// reservation block.
func Encode(tree *dt.FDT) []byte {
	var st, strtab bytes.Buffer
	offsets := map[string]uint32{}

	word := func(v uint32) { binary.Write(&st, binary.BigEndian, v) }
	pad := func() {
		for st.Len()%4 != 0 {
			st.WriteByte(0)
		}
	}
	var node func(n *dt.Node)
	node = func(n *dt.Node) {
		word(tokenBeginNode)
		st.WriteString(n.Name)
		st.WriteByte(0)
		pad()
		for _, p := range n.Properties {
			off, ok := offsets[p.Name]
			if !ok {
				off = uint32(strtab.Len())
				offsets[p.Name] = off
				strtab.WriteString(p.Name)
				strtab.WriteByte(0)
			}
			word(tokenProp)
			word(uint32(len(p.Value)))
			word(off)
			st.Write(p.Value)
			pad()
		}
		for _, c := range n.Children {
			node(c)
		}
		word(tokenEndNode)
	}
	node(tree.RootNode)
	word(tokenEnd)

	stringsOff := structOff + st.Len()
	total := stringsOff + strtab.Len()
	hdr := [10]uint32{
		0xd00dfeed,
		uint32(total),
		structOff,
		uint32(stringsOff),
		rsvmapOff,
		17, // version
		16, // last compatible version
		0,  // boot cpu
		uint32(strtab.Len()),
		uint32(st.Len()),
	}

	blob := make([]byte, total)
	for i, v := range hdr {
		binary.BigEndian.PutUint32(blob[4*i:], v)
	}
	copy(blob[structOff:], st.Bytes())
	copy(blob[stringsOff:], strtab.Bytes())
	return blob
}
