// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sigurn/crc8"
)

const usageString = `ELF to boot image converter.

Usage: %s [flags] <elffile>

`

var (
	flags = flag.NewFlagSet("image", flag.ExitOnError)

	infile string
	format = flags.String("format", "bin", "bin | gpt")
	run    = flags.String("run", "", "Run the image with command")
	tty    = flags.Bool("tty", false, "Give the command a terminal")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "image")
	flags.PrintDefaults()
}

// Header precedes the loadable image. All fields are little endian.
//
//	0  magic "BBL"
//	3  CRC-8 of bytes 4 to the end of the image
//	4  size of the image following the header
//	8  entry point, the load address of the first byte
const HeaderSize = 16

var magic = [3]byte{'B', 'B', 'L'}

var table = crc8.MakeTable(crc8.CRC8)

type Header struct {
	Size  uint32
	Entry uint64
}

// Encode returns the header for image, checksummed together with it.
func (h Header) Encode(image []byte) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[4:], h.Size)
	binary.LittleEndian.PutUint64(buf[8:], h.Entry)
	buf[3] = checksum(buf[4:], image)
	return buf
}

func checksum(hdr, image []byte) uint8 {
	csum := crc8.Init(table)
	csum = crc8.Update(csum, hdr, table)
	csum = crc8.Update(csum, image, table)
	return crc8.Complete(csum, table)
}

var ErrBadImage = errors.New("image: bad header")

// Decode checks that b starts with a valid header and returns it together
// with the image it describes.
func Decode(b []byte) (Header, []byte, error) {
	if len(b) < HeaderSize || [3]byte(b[:3]) != magic {
		return Header{}, nil, ErrBadImage
	}
	h := Header{
		Size:  binary.LittleEndian.Uint32(b[4:]),
		Entry: binary.LittleEndian.Uint64(b[8:]),
	}
	image := b[HeaderSize:]
	if uint64(len(image)) < uint64(h.Size) {
		return Header{}, nil, fmt.Errorf("%w: truncated", ErrBadImage)
	}
	image = image[:h.Size]
	if checksum(b[4:HeaderSize], image) != b[3] {
		return Header{}, nil, fmt.Errorf("%w: checksum mismatch", ErrBadImage)
	}
	return h, image, nil
}

// objcopy writes the allocated sections of src relative to its entry
// point.
func objcopy(dst io.WriterAt, src *elf.File) (size uint64, err error) {
	for _, s := range src.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return 0, err
		}

		if s.Addr < src.Entry {
			return 0, errors.New("data before entry point")
		}

		_, err = dst.WriteAt(data, int64(s.Addr-src.Entry))
		if err != nil {
			return 0, err
		}
		size = max(size, s.Addr-src.Entry+uint64(len(data)))
	}

	return size, nil
}

// Build converts the ELF file src to a headed image.
func Build(src *elf.File) ([]byte, error) {
	var w writerAt
	size, err := objcopy(&w, src)
	if err != nil {
		return nil, fmt.Errorf("objcopy: %w", err)
	}
	if size > 1<<32-1 {
		return nil, errors.New("objcopy: image too large")
	}
	body := w.buf[:size]
	hdr := Header{Size: uint32(size), Entry: src.Entry}.Encode(body)
	return append(hdr, body...), nil
}

// writerAt is a growing in-memory io.WriterAt.
type writerAt struct {
	buf []byte
}

func (w *writerAt) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	return copy(w.buf[off:], p), nil
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() == 1 {
		infile = flags.Arg(0)
	} else {
		flags.Usage()
		os.Exit(1)
	}

	outfile, _ := strings.CutSuffix(infile, ".elf")
	outfile += "." + *format

	elffile, err := elf.Open(infile)
	if err != nil {
		log.Fatalln(err)
	}
	defer elffile.Close()

	img, err := Build(elffile)
	if err != nil {
		log.Fatalln(err)
	}

	switch *format {
	case "bin":
		err = os.WriteFile(outfile, img, 0o644)
	case "gpt":
		err = writeGPT(outfile, img)
	default:
		log.Fatalf("image: %s format not supported", *format)
	}
	if err != nil {
		log.Fatalln(err)
	}

	if *run != "" {
		os.Exit(runImage(*run, outfile, *tty))
	}
}
