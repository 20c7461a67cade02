package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rvboot/bbl/tools/dtb"
	"github.com/rvboot/bbl/tools/image"
	"github.com/rvboot/bbl/tools/sim"
)

const usageString = `bblgo is a tool for development of the RISC-V boot loader.

Usage:

	%s <command> [arguments]

The commands are:

	image    convert and execute elf to loader images
	dtb      show the platform a device tree blob describes
	sim      boot the loader on simulated harts
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "image":
		image.Main(flag.Args())
	case "dtb":
		dtb.Main(flag.Args())
	case "sim":
		sim.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
